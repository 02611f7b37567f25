// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// NTPPacketSize is the size of an NTP packet without extensions.
	NTPPacketSize = 48

	// NTPEpochOffset is the number of seconds between the NTP epoch
	// (1900-01-01) and the Unix epoch (1970-01-01).
	NTPEpochOffset = 2208988800

	// ntpClientV3 is LI = 0, VN = 3, Mode = 3 (client).
	ntpClientV3 = 0x1B

	// ntpTransmitOffset is the offset of the transmit timestamp.
	ntpTransmitOffset = 40
)

// errNTPShortReply indicates a reply shorter than [NTPPacketSize].
var errNTPShortReply = errors.New("ntp: reply too short")

// NewNTPRequestPacket returns a client mode NTPv3 request.
func NewNTPRequestPacket() []byte {
	packet := make([]byte, NTPPacketSize)
	packet[0] = ntpClientV3
	return packet
}

// ExtractTimestamp returns the seconds of the reply's transmit timestamp
// relative to the Unix epoch. The reply must be at least [NTPPacketSize]
// bytes long.
func ExtractTimestamp(reply []byte) int64 {
	return int64(binary.BigEndian.Uint32(reply[ntpTransmitOffset:])) - NTPEpochOffset
}

// ExtractFraction returns the fraction of second of the reply's transmit
// timestamp in units of 2^-32 seconds.
func ExtractFraction(reply []byte) uint32 {
	return binary.BigEndian.Uint32(reply[ntpTransmitOffset+4:])
}

// NTPUnixMillis converts Unix seconds and an NTP fraction to Unix milliseconds.
func NTPUnixMillis(seconds int64, fraction uint32) int64 {
	return seconds*1000 + int64(fraction)*1000>>32
}

// PutNTPTimestamp writes unixMillis as the transmit timestamp of packet.
//
// It is the inverse of [ExtractTimestamp] and [ExtractFraction] down to
// the millisecond.
func PutNTPTimestamp(packet []byte, unixMillis int64) {
	seconds := unixMillis/1000 + NTPEpochOffset
	millis := unixMillis % 1000
	// Round up so that the truncating conversion yields millis back.
	fraction := (millis<<32 + 999) / 1000
	binary.BigEndian.PutUint32(packet[ntpTransmitOffset:], uint32(seconds))
	binary.BigEndian.PutUint32(packet[ntpTransmitOffset+4:], uint32(fraction))
}

// ParseNTPReply returns the transmit time of reply in Unix milliseconds.
func ParseNTPReply(reply []byte) (int64, error) {
	if len(reply) < NTPPacketSize {
		return 0, fmt.Errorf("%w: %d bytes", errNTPShortReply, len(reply))
	}
	return NTPUnixMillis(ExtractTimestamp(reply), ExtractFraction(reply)), nil
}
