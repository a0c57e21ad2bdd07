// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
)

type PayloadType int

const (
	PTBinary PayloadType = iota
	PTText
	PTHttpReq
	PTHttpResp
)

const (
	// printableShare share of printable bytes to consider the payload a text
	printableShare  = 0.9
	previewEllipsis = "..."
)

var (
	reqRe  = regexp.MustCompile(`^(\w+)\s+(\S+)\s+HTTP/\d+\.\d+`)
	respRe = regexp.MustCompile(`^HTTP/\d+\.\d+\s+(\d+)`)
)

// DetectPayloadType
// rough classification of a reassembled payload
func DetectPayloadType(payLoad []byte) PayloadType {
	firstLine := payLoad
	if eol := bytes.IndexByte(payLoad, '\n'); eol >= 0 {
		firstLine = payLoad[:eol]
	}
	if reqRe.Match(firstLine) {
		return PTHttpReq
	}
	if respRe.Match(firstLine) {
		return PTHttpResp
	}
	if len(payLoad) > 0 && float64(printableCount(payLoad)) >= printableShare*float64(len(payLoad)) {
		return PTText
	}
	return PTBinary
}

func (pt PayloadType) String() string {
	switch pt {
	case PTText:
		return "text"
	case PTHttpReq:
		return "http-request"
	case PTHttpResp:
		return "http-response"
	default:
		return "binary"
	}
}

// PayloadPreview
// up to limit leading bytes with non-printable bytes replaced by dots
func PayloadPreview(payLoad []byte, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := len(payLoad)
	if n > limit {
		n = limit
	}
	var sb strings.Builder
	for _, b := range payLoad[:n] {
		if isPrintable(b) {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
	}
	if len(payLoad) > limit {
		sb.WriteString(previewEllipsis)
	}
	return sb.String()
}

func printableCount(payLoad []byte) int {
	n := 0
	for _, b := range payLoad {
		if isPrintable(b) || b == '\r' || b == '\n' || b == '\t' {
			n++
		}
	}
	return n
}

func isPrintable(b byte) bool {
	return b < unicode.MaxASCII && unicode.IsPrint(rune(b))
}
