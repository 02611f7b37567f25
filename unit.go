// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

// Unit is the input of pipelines that start from a constant, such
// as the one returned by [NewEndpointFunc].
type Unit struct{}
