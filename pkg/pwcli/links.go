package pwcli

import (
	"regexp"
	"strconv"
	"strings"
)

// rawLink is a link as printed by `pw-link -l -I`.
type rawLink struct {
	id             uint32
	outputPortID   uint32
	outputPortName string
	inputPortID    uint32
	inputPortName  string
}

var (
	// "  90 effect_output.proc:output_FL"
	linkPortRe = regexp.MustCompile(`^\s*(\d+)\s+(\S+:\S+)\s*$`)
	// "  92   |->   82 speakereq2x2:playback_FL"
	linkArrowRe = regexp.MustCompile(`^\s*(\d+)\s+\|->\s+(\d+)\s+(\S+:\S+)\s*$`)
)

// parseLinks parses `pw-link -l -I` output. The listing prints each output
// port followed by indented |-> lines, one per link hanging off that port.
// Reverse |<- lines under input ports describe the same links and are skipped.
func parseLinks(output string) []rawLink {
	var links []rawLink
	var currentPortID uint32
	var currentPortName string

	for _, line := range splitLines(output) {
		if m := linkArrowRe.FindStringSubmatch(line); m != nil {
			if currentPortName == "" {
				continue
			}
			links = append(links, rawLink{
				id:             parseUint32(m[1]),
				outputPortID:   currentPortID,
				outputPortName: currentPortName,
				inputPortID:    parseUint32(m[2]),
				inputPortName:  m[3],
			})
			continue
		}
		if strings.Contains(line, "|<-") {
			continue
		}
		if m := linkPortRe.FindStringSubmatch(line); m != nil {
			currentPortID = parseUint32(m[1])
			currentPortName = m[2]
		}
	}
	return links
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

func parseUint32(s string) uint32 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
