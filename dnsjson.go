// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"bytes"
	"encoding/json"
)

// DNSJSONMessage is the subset of a DNS JSON API response we render.
type DNSJSONMessage struct {
	// Status is the response code (0 = NOERROR, 3 = NXDOMAIN, ...).
	Status int `json:"Status"`

	// Answer is the answer section, possibly empty.
	Answer []DNSAnswer `json:"Answer"`
}

// DNSAnswer is one resource record of a DNS JSON API answer section.
type DNSAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int64  `json:"TTL"`
	Data string `json:"data"`
}

// ParseDNSJSON parses body into a [*DNSJSONMessage] and returns the
// body indented by two spaces for display.
func ParseDNSJSON(body []byte) (*DNSJSONMessage, string, error) {
	var msg DNSJSONMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, "", err
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, body, "", "  "); err != nil {
		return nil, "", err
	}
	return &msg, indented.String(), nil
}
