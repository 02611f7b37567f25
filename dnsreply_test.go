// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNewRR(t *testing.T, s string) dns.RR {
	rr, err := dns.NewRR(s)
	require.NoError(t, err)
	return rr
}

func TestEmitDNSReply(t *testing.T) {
	const (
		soa  = "example.com.\t300\tIN\tSOA\tns.example.com. admin.example.com. 1 7200 3600 1209600 300"
		aRR  = "example.com.\t300\tIN\tA\t93.184.216.34"
		nsRR = "example.com.\t300\tIN\tNS\tns.example.com."
	)

	tests := []struct {
		name   string
		rcode  int
		answer []string
		ns     []string
		want   []string
	}{
		{
			name:   "answers only",
			rcode:  dns.RcodeSuccess,
			answer: []string{aRR},
			want:   []string{"Answer Section:", aRR},
		},
		{
			name:   "answers and authority",
			rcode:  dns.RcodeSuccess,
			answer: []string{aRR},
			ns:     []string{nsRR},
			want:   []string{"Answer Section:", aRR, "Authority Section:", nsRR},
		},
		{
			name:  "no data with SOA",
			rcode: dns.RcodeSuccess,
			ns:    []string{soa},
			want:  []string{"No records of requested type found", "Authority Section:", soa},
		},
		{
			name:  "authority without SOA",
			rcode: dns.RcodeSuccess,
			ns:    []string{nsRR},
			want:  []string{"Authority Section:", nsRR},
		},
		{
			name:  "empty reply",
			rcode: dns.RcodeSuccess,
			want:  []string{"No records found"},
		},
		{
			name:  "NXDOMAIN with SOA",
			rcode: dns.RcodeNameError,
			ns:    []string{soa},
			want:  []string{"Domain does not exist (NXDOMAIN)!", "Authority Section (SOA Record):", soa},
		},
		{
			name:  "NXDOMAIN without authority",
			rcode: dns.RcodeNameError,
			want:  []string{"Domain does not exist (NXDOMAIN)!"},
		},
		{
			// A misbehaving server may include answers: they are not dumped.
			name:   "NXDOMAIN never dumps answers",
			rcode:  dns.RcodeNameError,
			answer: []string{aRR},
			want:   []string{"Domain does not exist (NXDOMAIN)!"},
		},
		{
			name:   "SERVFAIL",
			rcode:  dns.RcodeServerFailure,
			answer: []string{aRR},
			want:   []string{"Server failed to complete the request"},
		},
		{
			name:  "REFUSED",
			rcode: dns.RcodeRefused,
			want:  []string{"Query refused by server"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := new(dns.Msg)
			resp.Rcode = tt.rcode
			for _, s := range tt.answer {
				resp.Answer = append(resp.Answer, mustNewRR(t, s))
			}
			for _, s := range tt.ns {
				resp.Ns = append(resp.Ns, mustNewRR(t, s))
			}

			emit, lines := collectLines()
			emitDNSReply(emit, resp)

			assert.Equal(t, tt.want, flattenLines(lines()))
		})
	}
}

func TestEmitDNSReplyRecordPresentation(t *testing.T) {
	resp := new(dns.Msg)
	resp.Answer = append(resp.Answer, newDNSTestA("dns.google.", net.IPv4(8, 8, 8, 8)))

	emit, lines := collectLines()
	emitDNSReply(emit, resp)

	got := lines()
	require.Len(t, got, 2)
	assert.Equal(t, Line{"dns.google.\t300\tIN\tA\t8.8.8.8"}, got[1])
}

func TestEmitDNSJSONResponse(t *testing.T) {
	t.Run("answers", func(t *testing.T) {
		body := `{"Status":0,"Answer":[` +
			`{"name":"example.com","type":1,"TTL":60,"data":"1.2.3.4"},` +
			`{"name":"example.com","type":99,"TTL":60,"data":"\"v=spf1 -all\""}]}`

		emit, lines := collectLines()
		emitDNSJSONResponse(emit, &DNSOverHTTPSResponse{StatusCode: 200, Body: []byte(body)})

		got := lines()
		require.Len(t, got, 5)
		assert.Equal(t, Line{"Formatted Response:"}, got[0])
		assert.Equal(t, Line{"Answer Section:"}, got[1])
		assert.Equal(t, Line{"Name: example.com", "Type: A (1)", "TTL: 60", "Data: 1.2.3.4"}, got[2])
		assert.Equal(t, Line{"Name: example.com", "Type: TYPE99 (99)", "TTL: 60", `Data: "v=spf1 -all"`}, got[3])
		require.Len(t, got[4], 2)
		assert.Equal(t, "Raw Response:", got[4][0])
		assert.Contains(t, got[4][1], "\n  \"Status\": 0,\n")
	})

	t.Run("status codes", func(t *testing.T) {
		tests := []struct {
			body string
			want string
		}{
			{`{"Status":0}`, "No answers found or invalid response format"},
			{`{"Status":0,"Answer":[]}`, "No answers found or invalid response format"},
			{`{"Status":3}`, "Domain does not exist (NXDOMAIN)"},
			{`{"Status":2}`, "Server failed to complete the request (SERVFAIL)"},
			{`{"Status":5}`, "Query refused by server"},
			{`{"Status":4}`, "Unknown status code: 4"},
		}

		for _, tt := range tests {
			t.Run(tt.body, func(t *testing.T) {
				emit, lines := collectLines()
				emitDNSJSONResponse(emit, &DNSOverHTTPSResponse{StatusCode: 200, Body: []byte(tt.body)})

				got := lines()
				require.Len(t, got, 3)
				assert.Equal(t, Line{"Formatted Response:"}, got[0])
				assert.Equal(t, Line{tt.want}, got[1])
				assert.Equal(t, "Raw Response:", got[2][0])
			})
		}
	})

	t.Run("non-JSON body", func(t *testing.T) {
		emit, lines := collectLines()
		emitDNSJSONResponse(emit, &DNSOverHTTPSResponse{StatusCode: 200, Body: []byte("not json")})

		assert.Equal(t, []Line{{"Raw Response: not json"}}, lines())
	})

	t.Run("HTTP error", func(t *testing.T) {
		emit, lines := collectLines()
		emitDNSJSONResponse(emit, &DNSOverHTTPSResponse{StatusCode: 400, Body: []byte(`{"Status":0}`)})

		assert.Equal(t, []Line{{"DNS over HTTPS Error: HTTP status 400"}}, lines())
	})
}
