// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/bassosimone/dnscodec"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDNSQueryType(t *testing.T) {
	tests := []struct {
		name string
		want uint16
	}{
		{"A", dns.TypeA},
		{"MX", dns.TypeMX},
		{"CNAME", dns.TypeCNAME},
		{"NS", dns.TypeNS},
		{"PTR", dns.TypePTR},
		{"ANY", dns.TypeANY},
		{"mx", dns.TypeMX},
		{" ns ", dns.TypeNS},
		{"AAAA", dns.TypeA},
		{"", dns.TypeA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DNSQueryType(tt.name))
		})
	}
}

// The code to label mapping is total and stable.
func TestDNSTypeLabel(t *testing.T) {
	tests := []struct {
		qtype uint16
		want  string
	}{
		{1, "A"},
		{2, "NS"},
		{5, "CNAME"},
		{15, "MX"},
		{12, "PTR"},
		{255, "ANY"},
		{28, "TYPE28"},
		{16, "TYPE16"},
		{0, "TYPE0"},
		{65535, "TYPE65535"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DNSTypeLabel(tt.qtype))
			assert.Equal(t, tt.want, DNSTypeLabel(tt.qtype), "mapping must be stable")
		})
	}
}

func TestDNSQueryName(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		qtype   uint16
		want    string
		wantErr bool
	}{
		{"name without trailing dot", "example.com", dns.TypeA, "example.com.", false},
		{"name with trailing dot", "example.com.", dns.TypeMX, "example.com.", false},
		{"PTR IPv4", "8.8.4.4", dns.TypePTR, "4.4.8.8.in-addr.arpa.", false},
		{"PTR IPv6", "2001:db8::1", dns.TypePTR,
			"1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.b.d.0.1.0.0.2.ip6.arpa.", false},
		{"PTR not an address", "example.com", dns.TypePTR, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DNSQueryName(tt.domain, tt.qtype)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewDNSQueryMsg(t *testing.T) {
	tests := []struct {
		name      string
		recursion bool
		stream    bool
	}{
		{"udp with recursion", true, false},
		{"udp without recursion", false, false},
		{"stream with recursion", true, true},
		{"stream without recursion", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewDNSQueryMsg("example.com.", dns.TypeMX, tt.recursion, tt.stream)
			require.NoError(t, err)

			// The RD flag survives serialization.
			raw, err := msg.Pack()
			require.NoError(t, err)
			parsed := new(dns.Msg)
			require.NoError(t, parsed.Unpack(raw))

			assert.Equal(t, tt.recursion, parsed.RecursionDesired)
			assert.False(t, parsed.Response)
			require.Len(t, parsed.Question, 1)
			assert.Equal(t, "example.com.", parsed.Question[0].Name)
			assert.Equal(t, dns.TypeMX, parsed.Question[0].Qtype)
			assert.Equal(t, uint16(dns.ClassINET), parsed.Question[0].Qclass)

			require.NotNil(t, parsed.IsEdns0())
			if tt.stream {
				assert.Equal(t, uint16(dnscodec.QueryMaxResponseSizeTCP), parsed.IsEdns0().UDPSize())
			} else {
				assert.Equal(t, uint16(dnscodec.QueryMaxResponseSizeUDP), parsed.IsEdns0().UDPSize())
			}
		})
	}

	t.Run("underscore labels", func(t *testing.T) {
		msg, err := NewDNSQueryMsg("_dmarc.example.com.", dns.TypeCNAME, true, false)
		require.NoError(t, err)
		require.Len(t, msg.Question, 1)
		assert.Equal(t, "_dmarc.example.com.", msg.Question[0].Name)
	})

	t.Run("name without trailing dot", func(t *testing.T) {
		msg, err := NewDNSQueryMsg("_sip._tcp.example.com", dns.TypeA, true, false)
		require.NoError(t, err)
		assert.Equal(t, "_sip._tcp.example.com.", msg.Question[0].Name)
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := NewDNSQueryMsg("a..b.", dns.TypeA, true, false)
		require.ErrorIs(t, err, errInvalidDNSName)
	})
}

func TestDNSStreamFrame(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		payload := bytes.Repeat([]byte{0xAB}, 300)
		frame, err := newDNSStreamFrame(payload)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x2C}, frame[:2])

		got, err := readDNSStreamFrame(bytes.NewReader(frame))
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := newDNSStreamFrame(make([]byte, 65536))
		require.ErrorIs(t, err, errDNSMessageTooLarge)
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := readDNSStreamFrame(bytes.NewReader([]byte{0x00}))
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("truncated body", func(t *testing.T) {
		_, err := readDNSStreamFrame(bytes.NewReader([]byte{0x00, 0x05, 0x01, 0x02}))
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("empty stream", func(t *testing.T) {
		_, err := readDNSStreamFrame(strings.NewReader(""))
		require.ErrorIs(t, err, io.EOF)
	})
}

func TestParseDNSReply(t *testing.T) {
	query, err := NewDNSQueryMsg("example.com.", dns.TypeA, true, false)
	require.NoError(t, err)

	pack := func(t *testing.T, msg *dns.Msg) []byte {
		raw, err := msg.Pack()
		require.NoError(t, err)
		return raw
	}

	t.Run("successful reply", func(t *testing.T) {
		resp := new(dns.Msg)
		resp.SetReply(query)
		resp.Answer = append(resp.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 300},
			A:   net.IPv4(93, 184, 216, 34),
		})

		got, err := ParseDNSReply(query, pack(t, resp))
		require.NoError(t, err)
		require.Len(t, got.Answer, 1)
	})

	t.Run("error rcode is not a failure", func(t *testing.T) {
		resp := new(dns.Msg)
		resp.SetRcode(query, dns.RcodeNameError)

		got, err := ParseDNSReply(query, pack(t, resp))
		require.NoError(t, err)
		assert.Equal(t, dns.RcodeNameError, got.Rcode)
	})

	t.Run("refused without question", func(t *testing.T) {
		resp := new(dns.Msg)
		resp.SetRcode(query, dns.RcodeRefused)
		resp.Question = nil

		got, err := ParseDNSReply(query, pack(t, resp))
		require.NoError(t, err)
		assert.Equal(t, dns.RcodeRefused, got.Rcode)
	})

	t.Run("success without question", func(t *testing.T) {
		resp := new(dns.Msg)
		resp.SetReply(query)
		resp.Question = nil

		_, err := ParseDNSReply(query, pack(t, resp))
		require.ErrorIs(t, err, dnscodec.ErrInvalidResponse)
	})

	t.Run("refused without question and mismatched ID", func(t *testing.T) {
		resp := new(dns.Msg)
		resp.SetRcode(query, dns.RcodeRefused)
		resp.Question = nil
		resp.Id = query.Id + 1

		_, err := ParseDNSReply(query, pack(t, resp))
		require.ErrorIs(t, err, dnscodec.ErrInvalidResponse)
	})

	t.Run("mismatched ID", func(t *testing.T) {
		resp := new(dns.Msg)
		resp.SetReply(query)
		resp.Id = query.Id + 1

		_, err := ParseDNSReply(query, pack(t, resp))
		require.ErrorIs(t, err, dnscodec.ErrInvalidResponse)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseDNSReply(query, []byte{0x01, 0x02, 0x03})
		require.Error(t, err)
	})
}
