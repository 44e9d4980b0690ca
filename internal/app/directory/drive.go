package directory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Drive is the Service backed by the Google Drive v3 API.
type Drive struct {
	files *drive.FilesService
}

var _ Service = (*Drive)(nil)

// NewDrive builds a Drive client from explicit client options.
func NewDrive(ctx context.Context, opts ...option.ClientOption) (*Drive, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Drive{files: srv.Files}, nil
}

// NewDriveFromCredentialsFile authenticates as the service account in the
// JSON key at path with read-only Drive scope.
func NewDriveFromCredentialsFile(ctx context.Context, path string, opts ...option.ClientOption) (*Drive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}
	// The token source outlives ctx, so it gets its own background context.
	client := cfg.Client(context.Background())
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	return NewDrive(ctx, opts...)
}

// quote renders s as a Drive query string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// folderQuery matches folders named exactly name, optionally also
// containing scope in the name.
func folderQuery(name, scope string) string {
	q := fmt.Sprintf("name = %s and mimeType = %s and trashed = false", quote(name), quote(FolderMimeType))
	if scope != "" {
		q += " and name contains " + quote(scope)
	}
	return q
}

func childrenQuery(folderID string) string {
	return quote(folderID) + " in parents and trashed = false"
}

func (d *Drive) FindFolder(ctx context.Context, name, scope string) (string, error) {
	res, err := d.files.List().
		Q(folderQuery(name, scope)).
		Fields("files(id, name)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if len(res.Files) == 0 {
		return "", ErrFolderNotFound
	}
	return res.Files[0].Id, nil
}

func (d *Drive) ListChildren(ctx context.Context, folderID string, limit int) ([]Entry, error) {
	res, err := d.files.List().
		Q(childrenQuery(folderID)).
		Fields("files(id, name, mimeType)").
		OrderBy("folder,name").
		PageSize(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(res.Files))
	for _, f := range res.Files {
		out = append(out, Entry{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
	}
	return out, nil
}
