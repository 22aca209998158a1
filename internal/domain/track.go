package domain

// Track represents one fetched playlist item of a job.
// Its position in the job's track slice is the authoritative order.
type Track struct {
	ID         int    `json:"id"`
	SourceRef  string `json:"source_ref"`
	Title      string `json:"title"`
	LocalPath  string `json:"local_path,omitempty"`
	FetchError string `json:"fetch_error,omitempty"`
}

// Fetched reports whether the track has a local audio file.
func (t Track) Fetched() bool {
	return t.LocalPath != "" && t.FetchError == ""
}

// AlbumMeta is the album-level metadata written into every track.
type AlbumMeta struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   string `json:"year"`
}

// SourceItem is one entry of a resolved playlist.
type SourceItem struct {
	SourceRef string `json:"source_ref"`
	Title     string `json:"title"`
}
