// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"fmt"
	"strconv"

	"github.com/miekg/dns"
)

// emitDNSReply narrates the content of a DNS reply.
//
// The response code is inspected first: NXDOMAIN, SERVFAIL, and REFUSED
// end the narration without dumping the answer section.
func emitDNSReply(emit EmitFunc, resp *dns.Msg) {
	switch resp.Rcode {
	case dns.RcodeNameError:
		emit("Domain does not exist (NXDOMAIN)!")
		if len(resp.Ns) > 0 {
			emit("Authority Section (SOA Record):")
			emitDNSRecords(emit, resp.Ns)
		}
		return

	case dns.RcodeServerFailure:
		emit("Server failed to complete the request")
		return

	case dns.RcodeRefused:
		emit("Query refused by server")
		return
	}

	if len(resp.Answer) > 0 {
		emit("Answer Section:")
		emitDNSRecords(emit, resp.Answer)
	}

	if len(resp.Ns) > 0 {
		if len(resp.Answer) <= 0 && hasSOARecord(resp.Ns) {
			emit("No records of requested type found")
		}
		emit("Authority Section:")
		emitDNSRecords(emit, resp.Ns)
	}

	if len(resp.Answer) <= 0 && len(resp.Ns) <= 0 {
		emit("No records found")
	}
}

// emitDNSRecords emits each record using the zone file presentation.
func emitDNSRecords(emit EmitFunc, records []dns.RR) {
	for _, rr := range records {
		emit(rr.String())
	}
}

func hasSOARecord(records []dns.RR) bool {
	for _, rr := range records {
		if rr.Header().Rrtype == dns.TypeSOA {
			return true
		}
	}
	return false
}

// emitDNSJSONResponse narrates a DNS JSON API response.
//
// A body that is not a JSON object is emitted verbatim.
func emitDNSJSONResponse(emit EmitFunc, resp *DNSOverHTTPSResponse) {
	if resp.StatusCode != 200 {
		emit(fmt.Sprintf("DNS over HTTPS Error: HTTP status %d", resp.StatusCode))
		return
	}

	msg, indented, err := ParseDNSJSON(resp.Body)
	if err != nil {
		emit("Raw Response: " + string(resp.Body))
		return
	}

	emit("Formatted Response:")
	switch msg.Status {
	case dns.RcodeSuccess:
		if len(msg.Answer) <= 0 {
			emit("No answers found or invalid response format")
			break
		}
		emit("Answer Section:")
		for _, answer := range msg.Answer {
			emit(
				"Name: "+answer.Name,
				fmt.Sprintf("Type: %s (%d)", DNSTypeLabel(uint16(answer.Type)), answer.Type),
				"TTL: "+strconv.FormatInt(answer.TTL, 10),
				"Data: "+answer.Data,
			)
		}

	case dns.RcodeNameError:
		emit("Domain does not exist (NXDOMAIN)")

	case dns.RcodeServerFailure:
		emit("Server failed to complete the request (SERVFAIL)")

	case dns.RcodeRefused:
		emit("Query refused by server")

	default:
		emit(fmt.Sprintf("Unknown status code: %d", msg.Status))
	}

	emit("Raw Response:", indented)
}
