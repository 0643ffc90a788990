package archive

// Estimate is the byte size an export would occupy, without ZIP framing.
type Estimate struct {
	TotalBytes int64 `json:"totalBytes"`
	JSONBytes  int64 `json:"jsonBytes"`
	MediaBytes int64 `json:"mediaBytes"`
	MediaCount int   `json:"mediaCount"`
}

// Estimate sums the serialized JSON documents and the media sizes recorded
// when the manifest was built. No file is read or re-stat'ed.
func (a *Archive) Estimate() Estimate {
	var est Estimate
	for _, d := range a.Documents {
		est.JSONBytes += int64(len(d.Body))
	}
	for _, m := range a.Media {
		est.MediaBytes += m.Size
	}
	est.MediaCount = len(a.Media)
	est.TotalBytes = est.JSONBytes + est.MediaBytes
	return est
}
