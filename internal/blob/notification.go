package blob

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// notification mirrors the subset of the S3/MinIO bucket-notification JSON
// the orchestrator consumes. Unknown fields are ignored.
type notification struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key         string `json:"key"`
				Size        int64  `json:"size"`
				ContentType string `json:"contentType"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseNotification decodes an object-store creation event into the object
// coordinates it announces. Object keys arrive URL-encoded and are decoded
// before correlation.
func ParseNotification(body []byte) ([]ObjectInfo, error) {
	var event notification
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode object-store notification: %w", err)
	}
	if len(event.Records) == 0 {
		return nil, fmt.Errorf("object-store notification has no records")
	}
	infos := make([]ObjectInfo, 0, len(event.Records))
	for _, record := range event.Records {
		key := record.S3.Object.Key
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if strings.TrimSpace(record.S3.Bucket.Name) == "" || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("object-store notification record missing bucket or key")
		}
		infos = append(infos, ObjectInfo{
			BucketName: record.S3.Bucket.Name,
			Path:       key,
			SizeInByte: record.S3.Object.Size,
			Mimetype:   record.S3.Object.ContentType,
		})
	}
	return infos, nil
}
