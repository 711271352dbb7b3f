package video

// SubtitleJob carries one subtitle track inside a processing job. It bundles
// everything the worker needs to fetch the track without calling back.
type SubtitleJob struct {
	ID         int64  `json:"id"`
	Lang       string `json:"langRFC5646"`
	FileID     int64  `json:"fileId"`
	FilePath   string `json:"filePath"`
	BucketName string `json:"bucketName"`
	SizeInByte int64  `json:"sizeInByte"`
	Mimetype   string `json:"mimetype"`
}

// ProcessMessage is the job published to the video processing queue. The
// payload is a self-contained snapshot of the asset's media and subtitles
// taken at dispatch time.
type ProcessMessage struct {
	VideoID    int64         `json:"videoId"`
	FileID     int64         `json:"fileId"`
	BucketName string        `json:"bucketName"`
	FilePath   string        `json:"filePath"`
	SizeInByte int64         `json:"sizeInByte"`
	Mimetype   string        `json:"mimetype"`
	Subs       []SubtitleJob `json:"subs"`
}

// StatusMessage is the report a worker publishes on the status queue after
// it picks up, finishes, or abandons a job.
type StatusMessage struct {
	VideoID int64  `json:"videoId"`
	Status  string `json:"status"`
	Logs    string `json:"logs"`
}
