// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Line is a non-empty group of text lines appended atomically to the
// output of an exchange. Groups are never reordered or deduplicated.
type Line []string

// EmitFunc appends a [Line] made of the given texts to the output.
//
// Handlers call it from the goroutine running the exchange. It may block
// until the consumer is ready to receive.
type EmitFunc func(texts ...string)

// emitError emits the "Error: <err>" line that ends most exchanges.
func emitError(emit EmitFunc, err error) {
	emit("Error: " + err.Error())
}

// readLines calls fn for each line read from r, without the line
// terminator, until EOF. Lines have no size limit. A final line lacking
// a terminator is still delivered. The returned error is nil on EOF.
func readLines(r io.Reader, fn func(line string)) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			fn(strings.TrimRight(line, "\r\n"))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
