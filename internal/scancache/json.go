package scancache

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/muurk/wificfg/internal/radio"
)

// Wire format read by the configuration page. Every value is a string.
type apJSON struct {
	ESSID string `json:"essid"`
	RSSI  string `json:"rssi"`
	Enc   string `json:"enc"`
}

type resultJSON struct {
	InProgress string `json:"inProgress"`
	// Pointer so an idle cache with no networks still emits "APs":[].
	APs *[]apJSON `json:"APs,omitempty"`
}

type envelopeJSON struct {
	Result resultJSON `json:"result"`
}

// MarshalJSON renders the scan status document.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var env envelopeJSON
	if s.InProgress {
		env.Result.InProgress = "1"
		return json.Marshal(env)
	}

	aps := make([]apJSON, 0, len(s.AccessPoints))
	for _, ap := range s.AccessPoints {
		aps = append(aps, apJSON{
			ESSID: ap.SSID,
			RSSI:  strconv.Itoa(int(ap.RSSI)),
			Enc:   strconv.Itoa(int(ap.Enc)),
		})
	}
	env.Result.InProgress = "0"
	env.Result.APs = &aps
	return json.Marshal(env)
}

// UnmarshalJSON parses a scan status document.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var env envelopeJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	switch env.Result.InProgress {
	case "1":
		*s = Snapshot{InProgress: true}
		return nil
	case "0":
	default:
		return fmt.Errorf("invalid inProgress value %q", env.Result.InProgress)
	}

	out := Snapshot{AccessPoints: []AccessPoint{}}
	if env.Result.APs != nil {
		for i, ap := range *env.Result.APs {
			rssi, err := strconv.ParseInt(ap.RSSI, 10, 8)
			if err != nil {
				return fmt.Errorf("access point %d: invalid rssi %q: %w", i, ap.RSSI, err)
			}
			enc, err := strconv.ParseUint(ap.Enc, 10, 8)
			if err != nil {
				return fmt.Errorf("access point %d: invalid enc %q: %w", i, ap.Enc, err)
			}
			out.AccessPoints = append(out.AccessPoints, AccessPoint{
				SSID: ap.ESSID,
				RSSI: int8(rssi),
				Enc:  radio.AuthMode(enc),
			})
		}
	}
	*s = out
	return nil
}

// WriteJSON writes the scan status document followed by a newline.
func (s Snapshot) WriteJSON(w io.Writer) error {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode scan status: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write scan status: %w", err)
	}
	return nil
}
