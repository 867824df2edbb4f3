// Package types holds the data model shared by the recording and playback
// engines: Resource and Inventory (persisted), BodyChunk and Transaction
// (runtime-only playback derivations).
package types

// ContentEncoding enumerates the content-encoding values C2/C6 understand.
type ContentEncoding string

const (
	EncodingIdentity ContentEncoding = "identity"
	EncodingGzip     ContentEncoding = "gzip"
	EncodingDeflate  ContentEncoding = "deflate"
	EncodingBrotli   ContentEncoding = "br"
	EncodingCompress ContentEncoding = "compress"
)

// DeviceType is the recording session's optional UA/viewport hint.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
)

// Resource is one recorded HTTP exchange. Fields use pointers/omitempty so
// that an absent field carries no semantics, per §4.1's "null/missing
// fields elided" rule.
type Resource struct {
	Method string `json:"method"`
	URL    string `json:"url"`

	TTFBMs int64    `json:"ttfbMs"`
	MBPS   *float64 `json:"mbps,omitempty"`

	StatusCode   *int    `json:"statusCode,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`

	RawHeaders Headers `json:"rawHeaders,omitempty"`

	ContentFilePath *string `json:"contentFilePath,omitempty"`
	ContentBase64   *string `json:"contentBase64,omitempty"`
	ContentUTF8     *string `json:"contentUtf8,omitempty"`

	ContentEncoding ContentEncoding `json:"contentEncoding,omitempty"`
	ContentTypeMime string          `json:"contentTypeMime,omitempty"`
	ContentCharset  string          `json:"contentCharset,omitempty"`
	Minify          bool            `json:"minify,omitempty"`

	// CloseOffsetMs is the Supplemented explicit-close-offset mentioned in
	// §4.6 point 6; zero means "not recorded", fall back to the default.
	CloseOffsetMs int64 `json:"closeOffsetMs,omitempty"`
}

// Succeeded reports whether the upstream leg produced a status code (as
// opposed to a network/body-read failure recorded via ErrorMessage).
func (r *Resource) Succeeded() bool {
	return r.StatusCode != nil
}

// Domain summarises one authority's footprint in a session (Supplemented
// feature 3); purely advisory, never consulted by the matcher.
type Domain struct {
	Host          string `json:"host"`
	ResourceCount int    `json:"resourceCount"`
	TotalBytes    int64  `json:"totalBytes"`
}

// Inventory is the persisted session document: an index plus the ordered
// list of resources it indexes. Order is completion order (§3).
type Inventory struct {
	EntryURL   string     `json:"entryUrl,omitempty"`
	DeviceType DeviceType `json:"deviceType,omitempty"`
	Resources  []Resource `json:"resources"`

	// Domains is additive and always omittable; older inventories lacking
	// it must still load (Supplemented feature 3).
	Domains []Domain `json:"domains,omitempty"`
}
