package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/imroc/req/v3"
	"golang.org/x/sync/singleflight"

	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

const (
	DefaultBaseURL = "https://api.crowdin.com/api/v2"
	pageLimit      = 500

	headerFileName = "Crowdin-API-FileName"
)

// EnterpriseBaseURL returns the API base URL of a Crowdin Enterprise organization.
func EnterpriseBaseURL(organization string) string {
	return "https://" + organization + ".api.crowdin.com/api/v2"
}

// CrowdinOptions configures a CrowdinClient.
type CrowdinOptions struct {
	// BaseURL overrides the API endpoint. Empty selects crowdin.com, or the
	// Enterprise endpoint when Organization is set.
	BaseURL      string
	Organization string
	Token        string
	UserAgent    string
	Timeout      time.Duration
	Logger       *slog.Logger
}

// CrowdinClient is a Catalog backed by the Crowdin v2 REST API.
type CrowdinClient struct {
	api      *req.Client
	download *req.Client
	logger   *slog.Logger

	mu       sync.Mutex
	dirs     map[string]map[string]int // project -> directory path -> id
	locales  map[string][]string       // project -> target language ids
	dirGroup singleflight.Group
}

var _ Catalog = (*CrowdinClient)(nil)
var _ ProgressReader = (*CrowdinClient)(nil)

// NewCrowdinClient returns a client authenticated with the bearer token in
// opts. Requests are never retried by the client itself and never dumped.
func NewCrowdinClient(opts CrowdinOptions) *CrowdinClient {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
		if opts.Organization != "" {
			base = EnterpriseBaseURL(opts.Organization)
		}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = fmt.Sprintf("crowdin-sync (%s; %s)", runtime.GOOS, runtime.GOARCH)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := req.C().
		SetBaseURL(strings.TrimSuffix(base, "/")).
		SetCommonBearerAuthToken(opts.Token).
		SetUserAgent(ua).
		SetTimeout(timeout).
		SetLogger(nil).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	download := req.C().
		SetUserAgent(ua).
		SetTimeout(timeout).
		SetLogger(nil)

	return &CrowdinClient{
		api:      api,
		download: download,
		logger:   logger,
		dirs:     make(map[string]map[string]int),
		locales:  make(map[string][]string),
	}
}

type fileData struct {
	ID                      int      `json:"id"`
	Name                    string   `json:"name"`
	Path                    string   `json:"path"`
	DirectoryID             int      `json:"directoryId"`
	RevisionID              int      `json:"revisionId"`
	ExcludedTargetLanguages []string `json:"excludedTargetLanguages"`
}

type directoryData struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DirectoryID int    `json:"directoryId"`
	Path        string `json:"path"`
}

type pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type page[T any] struct {
	Data []struct {
		Data T `json:"data"`
	} `json:"data"`
	Pagination pagination `json:"pagination"`
}

type single[T any] struct {
	Data T `json:"data"`
}

// ListResources pages through the project's files and directories.
func (c *CrowdinClient) ListResources(ctx context.Context, projectID string) ([]Resource, error) {
	locales, err := c.projectLocales(ctx, projectID, true)
	if err != nil {
		return nil, err
	}

	dirs, err := listAll[directoryData](ctx, c, "list", "/projects/"+url.PathEscape(projectID)+"/directories")
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(dirs))
	for _, d := range dirs {
		index[trimKey(d.Path)] = d.ID
	}
	c.mu.Lock()
	c.dirs[projectID] = index
	c.mu.Unlock()

	files, err := listAll[fileData](ctx, c, "list", "/projects/"+url.PathEscape(projectID)+"/files")
	if err != nil {
		return nil, err
	}
	out := make([]Resource, 0, len(files))
	for _, f := range files {
		out = append(out, toResource(f, locales))
	}
	sortResources(out)
	return out, nil
}

// CreateResource uploads content to storage, ensures the parent directories
// exist and adds the file. Crowdin rejects a duplicate name with a
// validation error.
func (c *CrowdinClient) CreateResource(ctx context.Context, projectID, remoteKey string, content []byte) (Resource, error) {
	dir, name := path.Split(remoteKey)
	dirID, err := c.ensureDir(ctx, projectID, strings.TrimSuffix(dir, "/"))
	if err != nil {
		return Resource{}, err
	}
	storageID, err := c.addStorage(ctx, name, remoteKey, content)
	if err != nil {
		return Resource{}, err
	}

	body := map[string]any{"storageId": storageID, "name": name}
	if dirID != 0 {
		body["directoryId"] = dirID
	}
	var out single[fileData]
	var apiErr apiError
	resp, err := c.api.R().
		SetContext(ctx).
		SetBody(body).
		SetSuccessResult(&out).
		SetErrorResult(&apiErr).
		Post("/projects/" + url.PathEscape(projectID) + "/files")
	if err := handleAPIError(resp, err, "create", remoteKey, &apiErr); err != nil {
		return Resource{}, err
	}

	locales, err := c.projectLocales(ctx, projectID, false)
	if err != nil {
		return Resource{}, err
	}
	return toResource(out.Data, locales), nil
}

// UpdateResource replaces the content of an existing file.
func (c *CrowdinClient) UpdateResource(ctx context.Context, projectID, remoteID string, content []byte) (Resource, error) {
	storageID, err := c.addStorage(ctx, "file-"+remoteID, remoteID, content)
	if err != nil {
		return Resource{}, err
	}

	var out single[fileData]
	var apiErr apiError
	resp, err := c.api.R().
		SetContext(ctx).
		SetBody(map[string]any{"storageId": storageID}).
		SetSuccessResult(&out).
		SetErrorResult(&apiErr).
		Put("/projects/" + url.PathEscape(projectID) + "/files/" + url.PathEscape(remoteID))
	if err := handleAPIError(resp, err, "update", remoteID, &apiErr); err != nil {
		return Resource{}, err
	}

	locales, err := c.projectLocales(ctx, projectID, false)
	if err != nil {
		return Resource{}, err
	}
	return toResource(out.Data, locales), nil
}

// FetchTranslation builds the translated file for one locale and downloads it.
func (c *CrowdinClient) FetchTranslation(ctx context.Context, projectID, remoteID, locale string) ([]byte, error) {
	key := remoteID + "@" + locale

	var build single[struct {
		URL string `json:"url"`
	}]
	var apiErr apiError
	resp, err := c.api.R().
		SetContext(ctx).
		SetBody(map[string]any{"targetLanguageId": locale}).
		SetSuccessResult(&build).
		SetErrorResult(&apiErr).
		Post("/projects/" + url.PathEscape(projectID) + "/translations/builds/files/" + url.PathEscape(remoteID))
	if err := handleAPIError(resp, err, "fetch", key, &apiErr); err != nil {
		return nil, err
	}
	if build.Data.URL == "" {
		return nil, &syncerr.Error{Kind: syncerr.KindTransient, Op: "fetch", Key: key, Err: fmt.Errorf("build returned no download url")}
	}

	resp, err = c.download.R().SetContext(ctx).Get(build.Data.URL)
	if err := handleAPIError(resp, err, "fetch", key, nil); err != nil {
		// A 403 here is an expired download link, not a bad token. A retry
		// requests a fresh build.
		if se, ok := err.(*syncerr.Error); ok && se.Kind == syncerr.KindAuth {
			se.Kind = syncerr.KindTransient
			se.Hint = ""
		}
		return nil, err
	}
	return resp.Bytes(), nil
}

// DeleteResource deletes a file. A 404 means it is already gone.
func (c *CrowdinClient) DeleteResource(ctx context.Context, projectID, remoteID string) error {
	var apiErr apiError
	resp, err := c.api.R().
		SetContext(ctx).
		SetErrorResult(&apiErr).
		Delete("/projects/" + url.PathEscape(projectID) + "/files/" + url.PathEscape(remoteID))
	if err == nil && resp.GetStatusCode() == http.StatusNotFound {
		c.logger.Debug("remote file already deleted", "id", remoteID)
		return nil
	}
	return handleAPIError(resp, err, "delete", remoteID, &apiErr)
}

// Progress returns the translation progress of every target language.
func (c *CrowdinClient) Progress(ctx context.Context, projectID string) ([]LanguageProgress, error) {
	type counts struct {
		Total      int `json:"total"`
		Translated int `json:"translated"`
		Approved   int `json:"approved"`
	}
	type progress struct {
		LanguageID          string `json:"languageId"`
		Words               counts `json:"words"`
		Phrases             counts `json:"phrases"`
		TranslationProgress int    `json:"translationProgress"`
		ApprovalProgress    int    `json:"approvalProgress"`
	}

	rows, err := listAll[progress](ctx, c, "progress", "/projects/"+url.PathEscape(projectID)+"/languages/progress")
	if err != nil {
		return nil, err
	}
	out := make([]LanguageProgress, 0, len(rows))
	for _, r := range rows {
		out = append(out, LanguageProgress{
			LanguageID:          r.LanguageID,
			Words:               Counts(r.Words),
			Phrases:             Counts(r.Phrases),
			TranslationProgress: r.TranslationProgress,
			ApprovalProgress:    r.ApprovalProgress,
		})
	}
	return out, nil
}

func listAll[T any](ctx context.Context, c *CrowdinClient, op, endpoint string) ([]T, error) {
	var out []T
	for offset := 0; ; offset += pageLimit {
		var p page[T]
		var apiErr apiError
		resp, err := c.api.R().
			SetContext(ctx).
			SetQueryParam("limit", strconv.Itoa(pageLimit)).
			SetQueryParam("offset", strconv.Itoa(offset)).
			SetSuccessResult(&p).
			SetErrorResult(&apiErr).
			Get(endpoint)
		if err := handleAPIError(resp, err, op, endpoint, &apiErr); err != nil {
			return nil, err
		}
		for _, item := range p.Data {
			out = append(out, item.Data)
		}
		if len(p.Data) < pageLimit {
			return out, nil
		}
	}
}

// projectLocales returns the project's target languages, cached per client.
func (c *CrowdinClient) projectLocales(ctx context.Context, projectID string, refresh bool) ([]string, error) {
	c.mu.Lock()
	cached, ok := c.locales[projectID]
	c.mu.Unlock()
	if ok && !refresh {
		return cached, nil
	}

	var out single[struct {
		TargetLanguageIDs []string `json:"targetLanguageIds"`
	}]
	var apiErr apiError
	resp, err := c.api.R().
		SetContext(ctx).
		SetSuccessResult(&out).
		SetErrorResult(&apiErr).
		Get("/projects/" + url.PathEscape(projectID))
	if err := handleAPIError(resp, err, "project", projectID, &apiErr); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.locales[projectID] = out.Data.TargetLanguageIDs
	c.mu.Unlock()
	return out.Data.TargetLanguageIDs, nil
}

func (c *CrowdinClient) addStorage(ctx context.Context, name, key string, content []byte) (int, error) {
	var out single[struct {
		ID int `json:"id"`
	}]
	var apiErr apiError
	resp, err := c.api.R().
		SetContext(ctx).
		SetHeader(headerFileName, url.QueryEscape(name)).
		SetContentType("application/octet-stream").
		SetBodyBytes(content).
		SetSuccessResult(&out).
		SetErrorResult(&apiErr).
		Post("/storages")
	if err := handleAPIError(resp, err, "storage", key, &apiErr); err != nil {
		return 0, err
	}
	return out.Data.ID, nil
}

// ensureDir returns the id of the directory at dirPath, creating it and its
// parents as needed. Concurrent callers creating the same directory share
// one request.
func (c *CrowdinClient) ensureDir(ctx context.Context, projectID, dirPath string) (int, error) {
	if dirPath == "" {
		return 0, nil
	}
	if id, ok := c.cachedDir(projectID, dirPath); ok {
		return id, nil
	}

	parentPath, name := path.Split(dirPath)
	parentID, err := c.ensureDir(ctx, projectID, strings.TrimSuffix(parentPath, "/"))
	if err != nil {
		return 0, err
	}

	v, err, _ := c.dirGroup.Do(projectID+"\x00"+dirPath, func() (any, error) {
		if id, ok := c.cachedDir(projectID, dirPath); ok {
			return id, nil
		}
		body := map[string]any{"name": name}
		if parentID != 0 {
			body["directoryId"] = parentID
		}
		var out single[directoryData]
		var apiErr apiError
		resp, err := c.api.R().
			SetContext(ctx).
			SetBody(body).
			SetSuccessResult(&out).
			SetErrorResult(&apiErr).
			Post("/projects/" + url.PathEscape(projectID) + "/directories")
		if err := handleAPIError(resp, err, "mkdir", dirPath, &apiErr); err != nil {
			return 0, err
		}
		c.logger.Debug("created remote directory", "path", dirPath, "id", out.Data.ID)

		c.mu.Lock()
		if c.dirs[projectID] == nil {
			c.dirs[projectID] = make(map[string]int)
		}
		c.dirs[projectID][dirPath] = out.Data.ID
		c.mu.Unlock()
		return out.Data.ID, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (c *CrowdinClient) cachedDir(projectID, dirPath string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.dirs[projectID][dirPath]
	return id, ok
}

func toResource(f fileData, projectLocales []string) Resource {
	locales := mapset.NewSet(projectLocales...)
	for _, ex := range f.ExcludedTargetLanguages {
		locales.Remove(ex)
	}
	key := trimKey(f.Path)
	if key == "" {
		key = f.Name
	}
	return Resource{
		RemoteKey:        key,
		RemoteID:         strconv.Itoa(f.ID),
		RemoteHash:       "rev-" + strconv.Itoa(f.RevisionID),
		AvailableLocales: locales,
	}
}

func trimKey(p string) string {
	return strings.TrimPrefix(p, "/")
}
