package xmeml

import (
	"encoding/xml"
	"strings"
)

// Raw document schema for the XMEML dialect, decode side. Types mirror the
// element names; translation into the timeline model happens in the decoder.
// Boolean text is kept as strings so any case parses.

type rawDocument struct {
	XMLName   xml.Name      `xml:"xmeml"`
	Version   string        `xml:"version,attr"`
	Sequences []rawSequence `xml:"sequence"`
	Bins      []rawBin      `xml:"bin"`
}

type rawRate struct {
	Timebase int    `xml:"timebase"`
	NTSC     string `xml:"ntsc"`
}

type rawTimecode struct {
	Rate          *rawRate `xml:"rate"`
	String        string   `xml:"string"`
	Frame         int      `xml:"frame"`
	DisplayFormat string   `xml:"displayformat"`
}

type rawSampleCharacteristics struct {
	Width      int `xml:"width"`
	Height     int `xml:"height"`
	Depth      int `xml:"depth"`
	SampleRate int `xml:"samplerate"`
}

type rawFormat struct {
	Characteristics *rawSampleCharacteristics `xml:"samplecharacteristics"`
}

type rawFile struct {
	ID       string        `xml:"id,attr"`
	Name     string        `xml:"name"`
	PathURL  string        `xml:"pathurl"`
	Duration int           `xml:"duration"`
	Rate     *rawRate      `xml:"rate"`
	Media    *rawFileMedia `xml:"media"`
}

type rawFileMedia struct {
	Video *rawFormat `xml:"video"`
	Audio *rawFormat `xml:"audio"`
}

type rawLink struct {
	ClipRefs  []string `xml:"linkclipref"`
	MediaType string   `xml:"mediatype"`
}

type rawClipItem struct {
	ID           string    `xml:"id,attr"`
	Name         string    `xml:"name"`
	Duration     int       `xml:"duration"`
	Enabled      string    `xml:"enabled"`
	Start        int       `xml:"start"`
	End          int       `xml:"end"`
	In           int       `xml:"in"`
	Out          int       `xml:"out"`
	Rate         *rawRate  `xml:"rate"`
	File         *rawFile  `xml:"file"`
	MasterClipID string    `xml:"masterclipid"`
	Links        []rawLink `xml:"link"`
}

type rawTransitionItem struct {
	Name      string   `xml:"name"`
	Rate      *rawRate `xml:"rate"`
	Start     int      `xml:"start"`
	End       int      `xml:"end"`
	Alignment string   `xml:"alignment"`
}

// rawTrackItem is one interleaved child of a track; exactly one field is set.
type rawTrackItem struct {
	Clip       *rawClipItem
	Transition *rawTransitionItem
}

type rawTrack struct {
	Name        string
	Locked      string
	Enabled     string
	TrackNumber int
	Format      *rawFormat
	Items       []rawTrackItem
}

// UnmarshalXML walks the track's children by hand so clipitem and
// transitionitem order is preserved; the struct decoder would split them
// into two lists and lose the interleaving the transition resolver needs.
func (t *rawTrack) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		token, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := token.(type) {
		case xml.StartElement:
			switch tok.Name.Local {
			case "name":
				if err := decodeText(d, tok, &t.Name); err != nil {
					return err
				}
			case "locked":
				if err := decodeText(d, tok, &t.Locked); err != nil {
					return err
				}
			case "enabled":
				if err := decodeText(d, tok, &t.Enabled); err != nil {
					return err
				}
			case "trackNumber", "tracknumber":
				var number struct {
					Value int `xml:",chardata"`
				}
				if err := d.DecodeElement(&number, &tok); err != nil {
					return err
				}
				t.TrackNumber = number.Value
			case "format":
				format := &rawFormat{}
				if err := d.DecodeElement(format, &tok); err != nil {
					return err
				}
				t.Format = format
			case "clipitem":
				clip := &rawClipItem{}
				if err := d.DecodeElement(clip, &tok); err != nil {
					return err
				}
				t.Items = append(t.Items, rawTrackItem{Clip: clip})
			case "transitionitem":
				transition := &rawTransitionItem{}
				if err := d.DecodeElement(transition, &tok); err != nil {
					return err
				}
				t.Items = append(t.Items, rawTrackItem{Transition: transition})
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func decodeText(d *xml.Decoder, start xml.StartElement, dst *string) error {
	var holder struct {
		Value string `xml:",chardata"`
	}
	if err := d.DecodeElement(&holder, &start); err != nil {
		return err
	}
	*dst = strings.TrimSpace(holder.Value)
	return nil
}

type rawMedia struct {
	Video *rawMediaKind `xml:"video"`
	Audio *rawMediaKind `xml:"audio"`
}

type rawMediaKind struct {
	Format *rawFormat `xml:"format"`
	Tracks []rawTrack `xml:"track"`
}

type rawSequence struct {
	ID       string       `xml:"id,attr"`
	Name     string       `xml:"name"`
	Duration int          `xml:"duration"`
	Rate     *rawRate     `xml:"rate"`
	Timecode *rawTimecode `xml:"timecode"`
	Media    *rawMedia    `xml:"media"`
}

type rawBin struct {
	Name     string      `xml:"name"`
	Children rawChildren `xml:"children"`
}

type rawChildren struct {
	Clips []rawMasterClip `xml:"clip"`
	Bins  []rawBin        `xml:"bin"`
}

type rawMasterClip struct {
	ID       string    `xml:"id,attr"`
	Name     string    `xml:"name"`
	Duration int       `xml:"duration"`
	In       int       `xml:"in"`
	Out      int       `xml:"out"`
	Rate     *rawRate  `xml:"rate"`
	Media    *rawMedia `xml:"media"`
}

// parseBool reads document boolean text in any case. Empty text returns the
// provided default; tracks and clips are enabled unless stated otherwise.
func parseBool(text string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true":
		return true
	case "false":
		return false
	default:
		return fallback
	}
}

// formatBool is the write-side convention: always upper case.
func formatBool(value bool) string {
	if value {
		return "TRUE"
	}
	return "FALSE"
}
