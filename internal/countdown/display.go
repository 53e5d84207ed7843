package countdown

import "fmt"

// Display is the zero-padded rendering of a Remaining used by the HTTP API
// and the CLI.
type Display struct {
	Days    string `json:"days"`
	Hours   string `json:"hours"`
	Minutes string `json:"minutes"`
	Seconds string `json:"seconds"`
	Label   string `json:"label"`
}

// Display pads every field to at least two digits.
func (r Remaining) Display() Display {
	return Display{
		Days:    fmt.Sprintf("%02d", r.Days),
		Hours:   fmt.Sprintf("%02d", r.Hours),
		Minutes: fmt.Sprintf("%02d", r.Minutes),
		Seconds: fmt.Sprintf("%02d", r.Seconds),
		Label:   r.String(),
	}
}

// String renders "2d 01:02:03", dropping the day part when it is zero, or
// "expired".
func (r Remaining) String() string {
	if r.Expired {
		return "expired"
	}
	if r.Days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", r.Days, r.Hours, r.Minutes, r.Seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", r.Hours, r.Minutes, r.Seconds)
}
