package ports

import "context"

// UploadArchive keeps a copy of every accepted import workbook
type UploadArchive interface {
	Store(ctx context.Context, key string, content []byte) (string, error)
}
