//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/dnsoverstream/blob/main/stream.go
//

package mpclient

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/netip"
	"strconv"
	"strings"

	"github.com/bassosimone/dnscodec"
	"github.com/miekg/dns"
)

// dnsQueryTypes maps the supported query type names to their codes.
var dnsQueryTypes = map[string]uint16{
	"A":     dns.TypeA,
	"MX":    dns.TypeMX,
	"CNAME": dns.TypeCNAME,
	"NS":    dns.TypeNS,
	"PTR":   dns.TypePTR,
	"ANY":   dns.TypeANY,
}

// dnsTypeLabels maps type codes to the labels used when rendering answers.
var dnsTypeLabels = map[uint16]string{
	dns.TypeA:     "A",
	dns.TypeNS:    "NS",
	dns.TypeCNAME: "CNAME",
	dns.TypeMX:    "MX",
	dns.TypePTR:   "PTR",
	dns.TypeANY:   "ANY",
}

// DNSQueryType returns the code of the given query type name. The lookup is
// case insensitive and unsupported names map to [dns.TypeA].
func DNSQueryType(name string) uint16 {
	if qtype, found := dnsQueryTypes[strings.ToUpper(strings.TrimSpace(name))]; found {
		return qtype
	}
	return dns.TypeA
}

// DNSTypeLabel returns the label of a type code, or "TYPE<n>" for codes
// outside of the supported set.
func DNSTypeLabel(qtype uint16) string {
	if label, found := dnsTypeLabels[qtype]; found {
		return label
	}
	return "TYPE" + strconv.Itoa(int(qtype))
}

// DNSQueryName returns the fully-qualified name to query.
//
// For [dns.TypePTR] the domain must be an IP literal and the name is its
// reverse mapping (e.g., "1.0.0.127.in-addr.arpa."). Otherwise the domain
// is returned with a trailing dot appended if missing.
func DNSQueryName(domain string, qtype uint16) (string, error) {
	if qtype != dns.TypePTR {
		return dns.Fqdn(domain), nil
	}
	addr, err := netip.ParseAddr(domain)
	if err != nil {
		return "", fmt.Errorf("invalid address for PTR query: %q", domain)
	}
	return dns.ReverseAddr(addr.String())
}

// errInvalidDNSName indicates a name that cannot be encoded on the wire.
var errInvalidDNSName = errors.New("dns: invalid domain name")

// NewDNSQueryMsg builds a single-question IN query for name and qtype.
//
// The name is used as given, without IDNA mapping, so service labels
// such as "_dmarc" are accepted. The recursion desired flag is set iff
// recursion is true. When stream is true the query advertises the larger
// response size suitable for TCP.
func NewDNSQueryMsg(name string, qtype uint16, recursion, stream bool) (*dns.Msg, error) {
	if _, ok := dns.IsDomainName(name); !ok {
		return nil, fmt.Errorf("%w: %q", errInvalidDNSName, name)
	}
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = recursion
	maxSize := uint16(dnscodec.QueryMaxResponseSizeUDP)
	if stream {
		maxSize = dnscodec.QueryMaxResponseSizeTCP
	}
	msg.SetEdns0(maxSize, false)
	return msg, nil
}

// errDNSMessageTooLarge indicates a message does not fit a stream frame.
var errDNSMessageTooLarge = errors.New("dns: message too large for stream framing")

// newDNSStreamFrame prefixes rawMsg with its 2-byte big-endian length.
func newDNSStreamFrame(rawMsg []byte) ([]byte, error) {
	if len(rawMsg) > math.MaxUint16 {
		return nil, errDNSMessageTooLarge
	}
	frame := make([]byte, 0, 2+len(rawMsg))
	frame = append(frame, byte(len(rawMsg)>>8), byte(len(rawMsg)))
	return append(frame, rawMsg...), nil
}

// readDNSStreamFrame reads a 2-byte big-endian length followed by
// exactly that many bytes.
func readDNSStreamFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	length := int(header[0])<<8 | int(header[1])
	rawMsg := make([]byte, length)
	if _, err := io.ReadFull(r, rawMsg); err != nil {
		return nil, err
	}
	return rawMsg, nil
}

// ParseDNSReply unpacks rawResp and checks that it answers query.
//
// A reply that does not match the query fails with an error wrapping
// [dnscodec.ErrInvalidResponse]. Error response codes are not failures
// here: the returned message carries them for the caller to interpret.
func ParseDNSReply(query *dns.Msg, rawResp []byte) (*dns.Msg, error) {
	resp := new(dns.Msg)
	if err := resp.Unpack(rawResp); err != nil {
		return nil, err
	}
	// Some servers drop the question section when refusing or failing.
	if resp.Response && resp.Id == query.Id && resp.Rcode != dns.RcodeSuccess && len(resp.Question) == 0 {
		return resp, nil
	}
	if _, err := dnscodec.ParseResponse(query, resp); errors.Is(err, dnscodec.ErrInvalidResponse) {
		return nil, err
	}
	return resp, nil
}
