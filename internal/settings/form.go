package settings

import (
	"fmt"
	"net/url"

	"github.com/gorilla/schema"
)

// Form is a settings submission. A nil field was not submitted.
type Form struct {
	WifiMode     *string `schema:"wifiMode"`
	ClientSSID   *string `schema:"clientSSID"`
	ClientPasswd *string `schema:"clientPasswd"`
	APAuth       *string `schema:"APAuth"`
	APChannel    *string `schema:"APChannel"`
	APSSID       *string `schema:"APSSID"`
}

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// DecodeForm reads the known settings fields from submitted form values.
func DecodeForm(values url.Values) (Form, error) {
	var f Form
	if err := decoder.Decode(&f, values); err != nil {
		return Form{}, fmt.Errorf("failed to decode settings form: %w", err)
	}
	return f, nil
}

// Values encodes the form back into request values, skipping absent fields.
func (f Form) Values() url.Values {
	v := url.Values{}
	set := func(key string, p *string) {
		if p != nil {
			v.Set(key, *p)
		}
	}
	set("wifiMode", f.WifiMode)
	set("clientSSID", f.ClientSSID)
	set("clientPasswd", f.ClientPasswd)
	set("APAuth", f.APAuth)
	set("APChannel", f.APChannel)
	set("APSSID", f.APSSID)
	return v
}

// Empty reports whether no field was submitted.
func (f Form) Empty() bool {
	return len(f.Values()) == 0
}

// present treats an empty submission the same as a missing one.
func present(p *string) (string, bool) {
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}
