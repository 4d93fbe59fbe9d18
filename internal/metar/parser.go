package metar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Archive lines look like:
//
//	KSFO,2023-06-15 04:56,KSFO 150456Z 28013KT 10SM FEW012 SCT180 17/12 A2993 RMK AO2
//
// i.e. station, UTC timestamp, then the raw METAR text. The parser only
// decodes the groups that matter for flight-category classification: sky
// cover and visibility. Wind, temperature, pressure, and remarks are ignored.
var (
	cloudRegex = regexp.MustCompile(`^(FEW|SCT|BKN|OVC|VV)(\d{3})`)
	visRegex   = regexp.MustCompile(`^(M|P)?(\d{1,3})(?:/(\d{1,2}))?SM$`)
	wholeNum   = regexp.MustCompile(`^\d{1,2}$`)
)

// ceilingCovers are the sky-cover codes that constitute a ceiling.
var ceilingCovers = map[string]bool{
	"BKN": true,
	"OVC": true,
	"VV":  true,
}

// allClearCodes report a cloud-free sky. CAVOK additionally implies
// unlimited visibility and is handled separately.
var allClearCodes = map[string]bool{
	"CLR": true,
	"SKC": true,
	"NSC": true,
	"NCD": true,
}

const timestampLayout = "2006-01-02 15:04"

// maxPlausibleLayerFt guards against garbled height groups; layers reported
// above this are dropped rather than failing the whole report.
const maxPlausibleLayerFt = 50000

// Parser converts raw archive report lines into Observations.
type Parser struct {
	elevationFt int
}

// NewParser creates a parser for a station at the given nominal elevation.
// The elevation is not used for classification, only for layer sanity checks.
func NewParser(elevationFt int) *Parser {
	return &Parser{elevationFt: elevationFt}
}

// ParseReport parses one raw archive line into an Observation. Re-parsing
// the same line always yields an identical result.
func (p *Parser) ParseReport(line string) (Observation, error) {
	parts := strings.SplitN(strings.TrimSpace(line), ",", 3)
	if len(parts) != 3 {
		return Observation{}, &ParseError{Line: line, Reason: "expected station,timestamp,report fields"}
	}

	ts, err := time.ParseInLocation(timestampLayout, strings.TrimSpace(parts[1]), time.UTC)
	if err != nil {
		return Observation{}, &ParseError{Line: line, Reason: fmt.Sprintf("bad timestamp %q", parts[1])}
	}
	if hr := ts.Hour(); hr < 0 || hr > 23 {
		return Observation{}, &ParseError{Line: line, Reason: fmt.Sprintf("hour %d out of range", hr)}
	}

	obs := Observation{
		Time:         ts,
		CeilingFt:    CeilingUnlimited,
		VisibilitySM: -1,
	}

	tokens := strings.Fields(parts[2])
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		// Everything after RMK is remarks; nothing there affects
		// ceiling or visibility.
		if tok == "RMK" {
			break
		}

		if tok == "CAVOK" {
			obs.VisibilitySM = VisibilityUnlimited
			obs.SkyTokens = append(obs.SkyTokens, tok)
			continue
		}

		if allClearCodes[tok] {
			obs.SkyTokens = append(obs.SkyTokens, tok)
			continue
		}

		if m := cloudRegex.FindStringSubmatch(tok); m != nil {
			obs.SkyTokens = append(obs.SkyTokens, tok)
			heightFt, _ := strconv.Atoi(m[2])
			heightFt *= 100
			if !ceilingCovers[m[1]] || heightFt > maxPlausibleLayerFt {
				continue
			}
			if heightFt < obs.CeilingFt {
				obs.CeilingFt = heightFt
			}
			continue
		}

		// Two-token mixed fraction, e.g. "1 1/2SM".
		if wholeNum.MatchString(tok) && i+1 < len(tokens) {
			if frac, ok := parseVisibility(tokens[i+1]); ok && strings.Contains(tokens[i+1], "/") {
				whole, _ := strconv.Atoi(tok)
				obs.VisibilitySM = float64(whole) + frac
				i++
				continue
			}
		}

		if v, ok := parseVisibility(tok); ok {
			obs.VisibilitySM = v
			continue
		}
	}

	if obs.VisibilitySM < 0 {
		// Reports with no usable visibility are discarded rather than
		// classified on ceiling alone.
		return Observation{}, &ParseError{Line: line, Reason: "no usable visibility group"}
	}

	return obs, nil
}

// parseVisibility decodes a statute-mile visibility group such as "10SM",
// "1/2SM", "M1/4SM" (less than 1/4) or "P6SM" (greater than 6). The M and P
// prefixes keep the stated value; the bound direction never changes which
// category the value falls in.
func parseVisibility(tok string) (float64, bool) {
	m := visRegex.FindStringSubmatch(tok)
	if m == nil {
		return 0, false
	}

	num, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	if m[3] != "" {
		den, err := strconv.ParseFloat(m[3], 64)
		if err != nil || den == 0 {
			return 0, false
		}
		num /= den
	}
	return num, true
}
