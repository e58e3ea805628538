package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"log"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googledrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	listPageSize   = 1000
)

// imageMimeTypes are the file types mirrored into the gallery.
var imageMimeTypes = []string{"image/jpeg", "image/png", "image/heic", "image/webp"}

// AccessTokenSource yields a bearer token for Drive calls.
type AccessTokenSource interface {
	Token(ctx context.Context) (string, error)
}

// tokenInvalidator is implemented by token sources that can drop a token Drive
// rejected.
type tokenInvalidator interface {
	Invalidate(ctx context.Context) error
}

const tokenFetchTimeout = 30 * time.Second

// oauthSource adapts an AccessTokenSource to oauth2.TokenSource. oauth2.Transport
// asks it for a token on every request, so the store-backed cache decides reuse.
type oauthSource struct {
	tokens AccessTokenSource
}

func (s oauthSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), tokenFetchTimeout)
	defer cancel()
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain drive access token: %w", err)
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// GoogleDrive implements Provider with the Drive v3 API through one long-lived
// client.
type GoogleDrive struct {
	tokens AccessTokenSource
	srv    *googledrive.Service
}

// NewGoogleDrive creates a Drive provider. endpoint overrides the API base URL
// and may be empty.
func NewGoogleDrive(tokens AccessTokenSource, endpoint string) (*GoogleDrive, error) {
	client := &http.Client{
		Transport: &oauth2.Transport{Source: oauthSource{tokens: tokens}, Base: http.DefaultTransport},
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	srv, err := googledrive.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return &GoogleDrive{tokens: tokens, srv: srv}, nil
}

// withTokenRetry runs call and, when Drive rejects the token, invalidates it and
// runs call once more with a fresh one.
func (g *GoogleDrive) withTokenRetry(ctx context.Context, call func() error) error {
	err := call()
	var apiErr *googleapi.Error
	if err == nil || !errors.As(err, &apiErr) || apiErr.Code != http.StatusUnauthorized {
		return err
	}
	inv, ok := g.tokens.(tokenInvalidator)
	if !ok {
		return err
	}
	log.Printf("drive: access token rejected, exchanging a new one")
	if ierr := inv.Invalidate(ctx); ierr != nil {
		log.Printf("drive: failed to invalidate cached token: %v", ierr)
	}
	return call()
}

func quoteID(id string) string {
	return "'" + strings.ReplaceAll(id, "'", `\'`) + "'"
}

func imagesQuery(folderID string) string {
	types := make([]string, 0, len(imageMimeTypes))
	for _, mt := range imageMimeTypes {
		types = append(types, "mimeType='"+mt+"'")
	}
	return fmt.Sprintf("%s in parents and (%s) and trashed=false", quoteID(folderID), strings.Join(types, " or "))
}

func translateError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	return err
}

func (g *GoogleDrive) ListFolders(ctx context.Context, parentID string) ([]RemoteFolder, error) {
	q := fmt.Sprintf("%s in parents and mimeType='%s' and trashed=false", quoteID(parentID), folderMimeType)
	var folders []RemoteFolder
	pageToken := ""
	for {
		call := g.srv.Files.List().
			Q(q).
			Fields("nextPageToken, files(id, name)").
			OrderBy("name").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		var list *googledrive.FileList
		err := g.withTokenRetry(ctx, func() (err error) {
			list, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list folders of %s: %w", parentID, translateError(err))
		}
		for _, f := range list.Files {
			folders = append(folders, RemoteFolder{ID: f.Id, Name: f.Name})
		}
		if list.NextPageToken == "" {
			return folders, nil
		}
		pageToken = list.NextPageToken
	}
}

func (g *GoogleDrive) ListImages(ctx context.Context, folderID, pageToken string) (FilePage, error) {
	call := g.srv.Files.List().
		Q(imagesQuery(folderID)).
		Fields("nextPageToken, files(id, name, mimeType, createdTime)").
		OrderBy("name").
		PageSize(listPageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	var list *googledrive.FileList
	err := g.withTokenRetry(ctx, func() (err error) {
		list, err = call.Do()
		return err
	})
	if err != nil {
		return FilePage{}, fmt.Errorf("failed to list images of %s: %w", folderID, translateError(err))
	}

	page := FilePage{NextPageToken: list.NextPageToken, Files: make([]RemoteFile, 0, len(list.Files))}
	for _, f := range list.Files {
		page.Files = append(page.Files, RemoteFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType, CreatedTime: f.CreatedTime})
	}
	return page, nil
}

func (g *GoogleDrive) Download(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	var resp *http.Response
	err := g.withTokenRetry(ctx, func() (err error) {
		resp, err = g.srv.Files.Get(fileID).Context(ctx).Download()
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to download %s: %w", fileID, translateError(err))
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return resp.Body, contentType, nil
}
