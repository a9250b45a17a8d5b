// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package hints reads program id hints from an XSPF playlist. A track titled
// "<number> <channel name>" with a VLC option "program=<id>" maps the channel
// name to that program id.
package hints

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	vlcNamespaceMarker = "videolan.org"
	programPrefix      = "program="
)

// Map is channel name → program id.
type Map map[string]string

// Parse reads an XSPF playlist. Any XML error invalidates the whole document.
func Parse(r io.Reader) (Map, error) {
	d := xml.NewDecoder(r)
	out := make(Map)

	var (
		inTrack bool
		title   string
		program string
	)

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse playlist: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "track":
				inTrack = true
				title, program = "", ""
			case inTrack && t.Name.Local == "title":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return nil, fmt.Errorf("parse playlist title: %w", err)
				}
				title = strings.TrimSpace(s)
			case inTrack && t.Name.Local == "option" && strings.Contains(t.Name.Space, vlcNamespaceMarker):
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return nil, fmt.Errorf("parse playlist option: %w", err)
				}
				if opt := strings.TrimSpace(s); strings.HasPrefix(opt, programPrefix) {
					program = strings.TrimSpace(strings.TrimPrefix(opt, programPrefix))
				}
			}
		case xml.EndElement:
			if inTrack && t.Name.Local == "track" {
				if name, ok := channelFromTitle(title); ok && program != "" {
					out[name] = program
				}
				inTrack = false
				title, program = "", ""
			}
		}
	}
	return out, nil
}

// channelFromTitle drops the leading token of "<number> <name>".
func channelFromTitle(title string) (string, bool) {
	i := strings.IndexByte(title, ' ')
	if i <= 0 || i >= len(title)-1 {
		return "", false
	}
	name := strings.TrimSpace(title[i+1:])
	return name, name != ""
}
