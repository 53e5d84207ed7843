package adapter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
)

// seedFile is the YAML layout of a local listing seed:
//
//	listings:
//	  - kind: auction
//	    id: vintage-camera
//	    end_time: 2024-01-02T00:00:00Z
//	  - kind: deal
//	    id: spring-sale
//	    created_at: 2024-01-01T00:00:00Z
//	    promo_duration: 48h
type seedFile struct {
	Listings []seedListing `yaml:"listings"`
}

type seedListing struct {
	Kind          string `yaml:"kind"`
	ID            string `yaml:"id"`
	Title         string `yaml:"title"`
	EndTime       string `yaml:"end_time"`
	CreatedAt     string `yaml:"created_at"`
	UpdatedAt     string `yaml:"updated_at"`
	PromoDuration string `yaml:"promo_duration"`
}

// LoadSeedFile reads listings from the YAML file at path.
func LoadSeedFile(path string) ([]domain.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML seed document. Every entry must pass
// Listing.Validate; the first invalid entry fails the whole seed.
func ParseSeed(data []byte) ([]domain.Listing, error) {
	var f seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w: %w", domain.ErrInvalidInput, err)
	}

	out := make([]domain.Listing, 0, len(f.Listings))
	for i, sl := range f.Listings {
		l, err := sl.toListing()
		if err != nil {
			return nil, fmt.Errorf("seed listing %d: %w", i, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func (sl seedListing) toListing() (domain.Listing, error) {
	kind, err := domain.ParseListingKind(sl.Kind)
	if err != nil {
		return domain.Listing{}, err
	}
	id, err := domain.NewListingID(sl.ID)
	if err != nil {
		return domain.Listing{}, err
	}

	var promo time.Duration
	if sl.PromoDuration != "" {
		promo, err = time.ParseDuration(sl.PromoDuration)
		if err != nil {
			return domain.Listing{}, fmt.Errorf("promo_duration %q: %w", sl.PromoDuration, domain.ErrInvalidInput)
		}
	}

	l := domain.Listing{
		ID:            id,
		Kind:          kind,
		Title:         sl.Title,
		EndTime:       countdown.ParseDeadline(sl.EndTime).Time(),
		CreatedAt:     countdown.ParseDeadline(sl.CreatedAt).Time(),
		UpdatedAt:     countdown.ParseDeadline(sl.UpdatedAt).Time(),
		PromoDuration: promo,
	}
	if err := l.Validate(); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}
