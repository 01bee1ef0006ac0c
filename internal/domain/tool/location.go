package tool

import (
	"encoding/json"
	"fmt"
)

// LocationKind tags the provider-specific variant of a retrieval location.
type LocationKind string

const (
	LocationS3         LocationKind = "s3"
	LocationWeb        LocationKind = "web"
	LocationConfluence LocationKind = "confluence"
	LocationSalesforce LocationKind = "salesforce"
	LocationSharePoint LocationKind = "sharepoint"
	LocationUnknown    LocationKind = "unknown"
)

// locationVariants maps each provider tag to the nested field that holds the
// display URI. Order matters: the first tag present in the object wins.
var locationVariants = []struct {
	kind  LocationKind
	tag   string
	field string
}{
	{LocationS3, "s3Location", "uri"},
	{LocationWeb, "webLocation", "url"},
	{LocationConfluence, "confluenceLocation", "url"},
	{LocationSalesforce, "salesforceLocation", "url"},
	{LocationSharePoint, "sharePointLocation", "url"},
}

// DisplayLocation reduces a polymorphic location object to a single display
// string: the URI/URL of the matching provider variant, or a deterministic
// string rendering of the whole object when no known tag is present.
// Total and stateless; never fails.
func DisplayLocation(location map[string]any) string {
	for _, v := range locationVariants {
		nested, ok := location[v.tag].(map[string]any)
		if !ok {
			continue
		}
		uri, _ := nested[v.field].(string)
		return uri
	}
	// Unknown variant: render the whole object. json.Marshal sorts map keys,
	// so the rendering is deterministic.
	if encoded, err := json.Marshal(location); err == nil {
		return string(encoded)
	}
	return fmt.Sprintf("%v", location)
}

// ClassifyLocation returns the variant tag present in the location object.
func ClassifyLocation(location map[string]any) LocationKind {
	for _, v := range locationVariants {
		if _, ok := location[v.tag]; ok {
			return v.kind
		}
	}
	return LocationUnknown
}
