package assets

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"

	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/syllabus"
	"github.com/google/uuid"
)

// SyllabusFiles keeps syllabus uploads in storage, with a row in the asset
// table for each one.
type SyllabusFiles struct {
	Conn    db.ConnOrTx
	Storage *Storage
}

var _ syllabus.FileStore = &SyllabusFiles{}

func (f *SyllabusFiles) Put(ctx context.Context, upload syllabus.Upload) (*syllabus.File, error) {
	filename := SanitizeFilename(upload.Filename)

	if len(upload.Content) == 0 {
		return nil, oops.New(nil, "could not upload asset '%s': no bytes of data were provided", filename)
	}
	contentType := upload.MimeType
	if contentType == "" {
		contentType = syllabus.PDFMimeType
	}

	id := uuid.New()
	key := AssetKey(id.String(), filename)
	checksum := fmt.Sprintf("%x", sha1.Sum(upload.Content))

	err := f.Storage.PutObject(ctx, key, upload.Content, contentType)
	if err != nil {
		return nil, err
	}

	asset, err := db.QueryOne[models.Asset](ctx, f.Conn,
		`
		---- Insert asset
		INSERT INTO asset (id, s3_key, filename, size, mime_type, sha1sum, uploader_id, created_at)
		VALUES            ($1, $2,     $3,       $4,   $5,        $6,      $7,          NOW())
		RETURNING $columns
		`,
		id,
		key,
		filename,
		len(upload.Content),
		contentType,
		checksum,
		upload.UploaderID,
	)
	if err != nil {
		if delErr := f.Storage.DeleteObject(ctx, key); delErr != nil {
			logging.ExtractLogger(ctx).Error().Err(delErr).Str("key", key).Msg("Failed to clean up object after asset insert failed")
		}
		return nil, oops.New(err, "failed to save asset record")
	}

	return syllabus.FileFromAsset(asset), nil
}

func (f *SyllabusFiles) Open(ctx context.Context, file *syllabus.File) (io.ReadCloser, error) {
	return f.Storage.GetObject(ctx, file.Key)
}

func (f *SyllabusFiles) Delete(ctx context.Context, file *syllabus.File) error {
	err := f.Storage.DeleteObject(ctx, file.Key)
	if err != nil {
		return err
	}

	_, err = f.Conn.Exec(ctx,
		`
		---- Delete asset
		DELETE FROM asset
		WHERE id = $1
		`,
		file.AssetID,
	)
	if err != nil {
		return oops.New(err, "failed to delete asset record")
	}
	return nil
}
