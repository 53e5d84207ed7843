package adapter_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/marketplace-countdown/internal/domain"
	"github.com/aelexs/marketplace-countdown/internal/listings/adapter"
)

const validSeed = `
listings:
  - kind: auction
    id: vintage-camera
    title: Vintage camera
    end_time: 2024-01-02T00:00:00Z
  - kind: deal
    id: spring-sale
    created_at: "1704067200000"
    updated_at: 2024-01-01 06:00:00
    promo_duration: 48h
`

func TestParseSeed(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		got, err := adapter.ParseSeed([]byte(validSeed))

		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, domain.ListingKindAuction, got[0].Kind)
		assert.Equal(t, "vintage-camera", got[0].ID.String())
		assert.Equal(t, "Vintage camera", got[0].Title)
		assert.True(t, got[0].EndTime.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))

		assert.Equal(t, domain.ListingKindDeal, got[1].Kind)
		assert.True(t, got[1].CreatedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		assert.True(t, got[1].UpdatedAt.Equal(time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)))
		assert.Equal(t, 48*time.Hour, got[1].PromoDuration)
	})

	t.Run("empty document", func(t *testing.T) {
		got, err := adapter.ParseSeed(nil)

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	errCases := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "unknown field",
			doc:     "listings:\n  - kind: auction\n    id: a\n    ends: 2024-01-02\n",
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "unknown kind",
			doc:     "listings:\n  - kind: raffle\n    id: a\n    end_time: 2024-01-02\n",
			wantErr: domain.ErrInvalidKind,
		},
		{
			name:    "invalid id",
			doc:     "listings:\n  - kind: auction\n    id: has space\n    end_time: 2024-01-02\n",
			wantErr: domain.ErrInvalidID,
		},
		{
			name:    "bad duration",
			doc:     "listings:\n  - kind: deal\n    id: a\n    created_at: 2024-01-01\n    promo_duration: two days\n",
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "no anchor",
			doc:     "listings:\n  - kind: auction\n    id: a\n",
			wantErr: domain.ErrInvalidDeadline,
		},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := adapter.ParseSeed([]byte(tc.doc))

			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadSeedFile(t *testing.T) {
	t.Run("reads from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.yaml")
		require.NoError(t, os.WriteFile(path, []byte(validSeed), 0o600))

		got, err := adapter.LoadSeedFile(path)

		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := adapter.LoadSeedFile(filepath.Join(t.TempDir(), "absent.yaml"))

		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLoadSeedFile_BundledSeed(t *testing.T) {
	listings, err := adapter.LoadSeedFile(filepath.Join("..", "..", "..", "configs", "listings.seed.yaml"))
	require.NoError(t, err)
	require.Len(t, listings, 4)

	for _, l := range listings {
		assert.True(t, l.HasAnchor(), "listing %s has no anchor", l.ID)
	}
	assert.Equal(t, domain.ListingKindAuction, listings[1].Kind)
	assert.Equal(t, int64(1893600000000), listings[1].EndTime.UnixMilli())
	assert.Equal(t, 6*time.Hour, listings[3].PromoDuration)
}
