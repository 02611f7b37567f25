// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDNSJSON(t *testing.T) {
	t.Run("answers and indentation", func(t *testing.T) {
		body := []byte(`{"Status":0,"Answer":[{"name":"example.com","type":1,"TTL":60,"data":"1.2.3.4"}]}`)

		msg, indented, err := ParseDNSJSON(body)

		require.NoError(t, err)
		assert.Equal(t, 0, msg.Status)
		require.Len(t, msg.Answer, 1)
		assert.Equal(t, DNSAnswer{Name: "example.com", Type: 1, TTL: 60, Data: "1.2.3.4"}, msg.Answer[0])
		assert.Contains(t, indented, "\n  \"Status\": 0,")
	})

	t.Run("missing answer section", func(t *testing.T) {
		msg, _, err := ParseDNSJSON([]byte(`{"Status":3}`))

		require.NoError(t, err)
		assert.Equal(t, 3, msg.Status)
		assert.Empty(t, msg.Answer)
	})

	t.Run("not JSON", func(t *testing.T) {
		_, _, err := ParseDNSJSON([]byte("<html>oops</html>"))
		require.Error(t, err)
	})
}
