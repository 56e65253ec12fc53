package capture

import (
	"fmt"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/pageload-cli/api/schemas"
)

// Summarize digests a HAR capture: first page timings, entry counts by status class
// and total body size. It fails when content is not a HAR document.
func Summarize(content []byte) (*schemas.HARSummary, error) {
	var har schemas.HAR
	if err := json.Unmarshal(content, &har); err != nil {
		return nil, fmt.Errorf("capture is not a HAR document: %w", err)
	}

	s := &schemas.HARSummary{
		Creator:       har.Log.Creator.Name,
		Pages:         len(har.Log.Pages),
		Entries:       len(har.Log.Entries),
		OnContentLoad: -1,
		OnLoad:        -1,
	}
	if len(har.Log.Pages) > 0 {
		timings := har.Log.Pages[0].PageTimings
		s.OnContentLoad = timings.OnContentLoad
		s.OnLoad = timings.OnLoad
		s.ValidPageLoadTime = timings.OnLoad > 0
	}

	for _, e := range har.Log.Entries {
		switch status := e.Response.Status; {
		case status == 0:
			s.Status.NoResponse++
		case status < 200:
			s.Status.Informational++
		case status < 300:
			s.Status.Success++
		case status < 400:
			s.Status.Redirection++
		case status < 500:
			s.Status.ClientError++
		default:
			s.Status.ServerError++
		}
		if e.Response.Content.Size > 0 {
			s.BodyBytes += e.Response.Content.Size
		}
	}
	return s, nil
}
