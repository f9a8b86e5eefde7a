package pipeline

import (
	"fmt"
	"strings"
)

// MaxIDsInMessage caps the ids listed in one diagnostic message.
const MaxIDsInMessage = 100

// Diagnostics summarises the records excluded from the map.
type Diagnostics struct {
	InvalidLocationIDs []string `json:"invalid_location_ids"`
	UnknownLocationIDs []string `json:"unknown_location_ids"`
	TotalFlows         int      `json:"total_flows"`
	KnownFlows         int      `json:"known_flows"`
}

// OmittedFlows is the number of flows dropped for unknown or invalid endpoints.
func (d Diagnostics) OmittedFlows() int {
	return d.TotalFlows - d.KnownFlows
}

// Empty reports whether nothing was excluded.
func (d Diagnostics) Empty() bool {
	return len(d.InvalidLocationIDs) == 0 && len(d.UnknownLocationIDs) == 0 && d.OmittedFlows() == 0
}

// Messages renders the diagnostics as user facing text, one message per
// problem.
func (d Diagnostics) Messages() []string {
	var msgs []string
	if len(d.InvalidLocationIDs) > 0 {
		msgs = append(msgs, "Locations with the following IDs have invalid coordinates: "+
			formatIDs(d.InvalidLocationIDs)+
			". Make sure the columns are named \"lat\" and \"lon\" and latitudes and longitudes are not swapped."+
			" The coordinates must be in decimal form.")
	}
	if len(d.UnknownLocationIDs) > 0 || d.OmittedFlows() > 0 {
		var b strings.Builder
		if len(d.UnknownLocationIDs) > 0 {
			b.WriteString("Locations with the following IDs couldn't be found in the locations sheet: ")
			b.WriteString(formatIDs(d.UnknownLocationIDs))
			b.WriteString(". ")
		}
		if n := d.OmittedFlows(); n == 1 {
			b.WriteString("1 flow was omitted.")
		} else {
			fmt.Fprintf(&b, "%d flows were omitted.", n)
		}
		if d.KnownFlows == 0 {
			b.WriteString(" Make sure the header row in the flows sheet is correct. There must be origin, dest, and count.")
		}
		msgs = append(msgs, b.String())
	}
	return msgs
}

func formatIDs(ids []string) string {
	if len(ids) <= MaxIDsInMessage {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s… and %d others", strings.Join(ids[:MaxIDsInMessage], ", "), len(ids)-MaxIDsInMessage)
}

// Diagnostics reports the excluded records of the current dataset and
// updates the diagnostic gauges. The second result is false until the data
// is loaded.
func (p *Pipeline) Diagnostics() (Diagnostics, bool) {
	data, key, ok := p.dataKey()
	if !ok {
		return Diagnostics{}, false
	}
	d := Diagnostics{
		InvalidLocationIDs: p.InvalidLocationIDs(),
		UnknownLocationIDs: p.UnknownLocationIDs(),
		TotalFlows:         len(data.Flows),
		KnownFlows:         len(p.knownFlows(data, key)),
	}
	p.metrics.InvalidLocations.Set(float64(len(d.InvalidLocationIDs)))
	p.metrics.UnknownLocations.Set(float64(len(d.UnknownLocationIDs)))
	p.metrics.OmittedFlows.Set(float64(d.OmittedFlows()))
	return d, true
}
