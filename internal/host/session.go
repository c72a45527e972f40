// Package host orchestrates one native-messaging session: it owns the
// repository path for the session's lifetime, dispatches decoded requests
// through fixed per-action pipelines, and maps every failure onto a
// stable error code the extension can branch on.
//
// Dispatch is single-threaded; the only concurrency is the background
// OAuth poll, which touches nothing but the token store.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/webtags/native-host/internal/bookmarks"
	"github.com/webtags/native-host/internal/github"
	"github.com/webtags/native-host/internal/msg"
	"github.com/webtags/native-host/internal/storage"
	"github.com/webtags/native-host/internal/vcs"
)

// BookmarksFile is the single data file inside the repository.
const BookmarksFile = "bookmarks.json"

// Session holds the state of one extension connection. It is not safe
// for concurrent Handle calls; the serve loop is strictly sequential.
type Session struct {
	baseDir           string
	repoPath          string
	encryptionEnabled bool

	store  *storage.Store
	github *github.Client
	tokens github.TokenStore
	auth   vcs.AuthProvider
	log    *zap.Logger
}

// Options configures a Session. BaseDir is required; everything else has
// a production default.
type Options struct {
	// BaseDir confines every repository path the extension may request.
	BaseDir string

	// Keys holds the envelope encryption key. Defaults to an in-memory
	// store, which does not survive the process; production wiring
	// passes the platform store.
	Keys storage.KeyStore

	// Tokens persists the GitHub access token. Defaults to the OS
	// keyring.
	Tokens github.TokenStore

	// GitHub is the API client. Defaults to the production endpoints.
	GitHub *github.Client

	Log *zap.Logger
}

// NewSession creates the base directory if needed and wires the session.
func NewSession(opts Options) (*Session, error) {
	if opts.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(opts.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	keys := opts.Keys
	if keys == nil {
		keys = storage.NewMemoryKeyStore()
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = github.NewKeyringStore()
	}
	gh := opts.GitHub
	if gh == nil {
		gh = github.NewClient()
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Session{
		baseDir: opts.BaseDir,
		store:   storage.NewStore(keys, log),
		github:  gh,
		tokens:  tokens,
		log:     log,
	}
	s.auth = vcs.NewCredentialHelper(func() (string, bool) {
		token, err := tokens.Token()
		return token, err == nil
	})
	return s, nil
}

// Handle runs one request through its pipeline and returns the response.
func (s *Session) Handle(ctx context.Context, req *msg.Request) msg.Response {
	if err := req.Validate(); err != nil {
		return msg.Error(CodeReadMessage, err.Error())
	}

	switch req.Type {
	case msg.TypeInit:
		return s.handleInit(ctx, req)
	case msg.TypeWrite:
		return s.handleWrite(ctx, req)
	case msg.TypeRead:
		return s.handleRead()
	case msg.TypeSync:
		return s.handleSync(ctx)
	case msg.TypeAuth:
		return s.handleAuth(ctx, req)
	case msg.TypeStatus:
		return s.handleStatus()
	case msg.TypeEnableEncryption:
		return s.handleEnableEncryption(ctx)
	case msg.TypeDisableEncryption:
		return s.handleDisableEncryption(ctx)
	default:
		return msg.Error(CodeReadMessage, fmt.Sprintf("unknown message type %q", req.Type))
	}
}

func (s *Session) bookmarksPath() string {
	return filepath.Join(s.repoPath, BookmarksFile)
}

// notInitialized is the response for data operations before a successful
// init.
func (s *Session) notInitialized() (msg.Response, bool) {
	if s.repoPath != "" {
		return msg.Response{}, false
	}
	return msg.Error(CodeNotInitialized, "Repository not initialized"), true
}

func (s *Session) handleInit(ctx context.Context, req *msg.Request) msg.Response {
	path, err := confinePath(s.baseDir, req.RepoPath)
	if errors.Is(err, ErrPathOutsideBase) {
		return msg.Error(CodePathOutsideBase, err.Error())
	}
	if err != nil {
		return msg.Error(CodeInit, fmt.Sprintf("Failed to resolve repository path: %v", err))
	}

	var repo *vcs.Repo
	if req.RepoURL != "" {
		s.log.Info("cloning repository", zap.String("url", req.RepoURL), zap.String("path", path))
		repo, err = vcs.CloneFrom(ctx, req.RepoURL, path, s.auth)
		if err != nil {
			return msg.Error(CodeClone, fmt.Sprintf("Failed to clone repository: %v", err))
		}
	} else {
		s.log.Info("initializing repository", zap.String("path", path))
		repo, err = vcs.Open(path, s.auth)
		if err != nil {
			return msg.Error(CodeInit, fmt.Sprintf("Failed to initialize repository: %v", err))
		}
	}

	s.repoPath = repo.Path()
	// A cloned or reopened repository may already hold an encrypted file;
	// pick the session's encryption mode up from disk.
	s.encryptionEnabled = s.store.IsEncrypted(s.bookmarksPath())

	return msg.Success(fmt.Sprintf("Repository initialized at %s", s.repoPath), nil)
}

func (s *Session) handleWrite(ctx context.Context, req *msg.Request) msg.Response {
	if resp, stop := s.notInitialized(); stop {
		return resp
	}

	var doc bookmarks.Document
	if err := json.Unmarshal(req.Data, &doc); err != nil {
		return msg.Error(CodeParse, fmt.Sprintf("Failed to parse bookmarks data: %v", err))
	}
	if err := doc.Validate(); err != nil {
		return msg.Error(CodeValidate, fmt.Sprintf("Invalid bookmarks data: %v", err))
	}

	if err := s.store.WriteDocument(s.bookmarksPath(), &doc, s.encryptionEnabled); err != nil {
		return msg.Error(CodeWriteFile, fmt.Sprintf("Failed to write bookmarks file: %v", err))
	}

	repo, err := vcs.Open(s.repoPath, s.auth)
	if err != nil {
		return msg.Error(CodeOpenRepo, fmt.Sprintf("Failed to open repository: %v", err))
	}
	if err := repo.Stage(BookmarksFile); err != nil {
		return msg.Error(CodeGitAdd, fmt.Sprintf("Failed to stage file: %v", err))
	}

	message := fmt.Sprintf("Update bookmarks: %d bookmarks, %d tags",
		len(doc.Bookmarks()), len(doc.Tags()))
	if _, err := repo.Commit(message); err != nil {
		return msg.Error(CodeGitCommit, fmt.Sprintf("Failed to commit: %v", err))
	}

	if repo.HasRemote(vcs.DefaultRemote) {
		if err := repo.Push(ctx, vcs.DefaultRemote, vcs.DefaultBranch); err != nil {
			return msg.Error(CodeGitPush, fmt.Sprintf("Failed to push: %v", err))
		}
	}

	return msg.Success("Bookmarks saved and synced", nil)
}

func (s *Session) handleRead() msg.Response {
	if resp, stop := s.notInitialized(); stop {
		return resp
	}

	path := s.bookmarksPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return msg.Success("No bookmarks file found, returning empty data", bookmarks.New())
	}

	doc, err := s.store.ReadDocument(path, s.encryptionEnabled)
	if errors.Is(err, storage.ErrEncryptedFile) {
		return msg.Error(CodeEncryptedFile, err.Error())
	}
	if err != nil {
		return msg.Error(CodeReadFile, fmt.Sprintf("Failed to read bookmarks file: %v", err))
	}

	return msg.Success("Bookmarks loaded", doc)
}

func (s *Session) handleSync(ctx context.Context) msg.Response {
	if resp, stop := s.notInitialized(); stop {
		return resp
	}

	repo, err := vcs.Open(s.repoPath, s.auth)
	if err != nil {
		return msg.Error(CodeOpenRepo, fmt.Sprintf("Failed to open repository: %v", err))
	}
	if !repo.HasRemote(vcs.DefaultRemote) {
		return msg.Error(CodeNoRemote, "No remote configured")
	}

	outcome, err := repo.Pull(ctx, vcs.DefaultRemote, vcs.DefaultBranch)
	if err != nil {
		return msg.Error(CodeGitPull, fmt.Sprintf("Failed to pull: %v", err))
	}
	s.log.Info("sync completed", zap.String("outcome", outcome.String()))

	// The session's encryption mode follows whatever the pull brought in.
	s.encryptionEnabled = s.store.IsEncrypted(s.bookmarksPath())

	return msg.Success("Synced with remote", nil)
}

func (s *Session) handleAuth(ctx context.Context, req *msg.Request) msg.Response {
	switch req.Method {
	case msg.AuthOAuth:
		flow, err := s.github.StartDeviceFlow(ctx)
		if err != nil {
			return msg.Error(CodeOAuthStart, fmt.Sprintf("Failed to start OAuth flow: %v", err))
		}
		go s.completeDeviceFlow(flow)
		return msg.AuthFlow(flow.UserCode, flow.VerificationURI, flow.DeviceCode)

	case msg.AuthPAT:
		if req.Token == "" {
			return msg.Error(CodeNoToken, "No token provided")
		}
		valid, err := s.github.ValidateToken(ctx, req.Token)
		if err != nil {
			return msg.Error(CodeValidateToken, fmt.Sprintf("Failed to validate token: %v", err))
		}
		if !valid {
			return msg.Error(CodeInvalidToken, "Invalid token")
		}
		if err := s.tokens.Set(req.Token); err != nil {
			return msg.Error(CodeStoreToken, fmt.Sprintf("Failed to store token: %v", err))
		}
		return msg.Success("Token validated and stored", nil)

	default:
		return msg.Error(CodeReadMessage, fmt.Sprintf("unknown auth method %q", req.Method))
	}
}

// completeDeviceFlow polls for the token after the AuthFlow response has
// gone back to the extension. Detached from the request context: the
// user may take minutes to approve, and the expiry baked into the device
// authorization bounds the wait.
func (s *Session) completeDeviceFlow(flow *oauth2.DeviceAuthResponse) {
	token, err := s.github.WaitForToken(context.Background(), flow)
	if err != nil {
		s.log.Warn("device flow did not complete", zap.Error(err))
		return
	}
	if err := s.tokens.Set(token); err != nil {
		s.log.Error("failed to store GitHub token", zap.Error(err))
		return
	}
	s.log.Info("GitHub token stored")
}

func (s *Session) handleStatus() msg.Response {
	if s.repoPath == "" {
		return msg.Success("Not initialized", map[string]any{"initialized": false})
	}

	repo, err := vcs.Open(s.repoPath, s.auth)
	if err != nil {
		return msg.Error(CodeOpenRepo, fmt.Sprintf("Failed to open repository: %v", err))
	}

	isClean, err := repo.IsClean()
	if err != nil {
		isClean = false
	}
	lastCommit, err := repo.LastCommitMessage()
	if err != nil {
		lastCommit = ""
	}

	return msg.Success("Status retrieved", map[string]any{
		"initialized":        true,
		"repo_path":          s.repoPath,
		"is_clean":           isClean,
		"has_remote":         repo.HasRemote(vcs.DefaultRemote),
		"last_commit":        lastCommit,
		"encryption_enabled": s.encryptionEnabled,
	})
}

func (s *Session) handleEnableEncryption(ctx context.Context) msg.Response {
	if resp, stop := s.notInitialized(); stop {
		return resp
	}
	if s.encryptionEnabled {
		return msg.Success("Encryption already enabled", nil)
	}

	path := s.bookmarksPath()
	if err := s.store.EnableEncryption(path); err != nil {
		return msg.Error(CodeEnableEncryption, fmt.Sprintf("Failed to enable encryption: %v", err))
	}
	s.encryptionEnabled = true

	// The re-encrypted file is a content change like any other write.
	if _, err := os.Stat(path); err == nil {
		if resp, ok := s.commitAndPush(ctx, "Enable encryption"); !ok {
			return resp
		}
	}
	return msg.Success("Encryption enabled", nil)
}

func (s *Session) handleDisableEncryption(ctx context.Context) msg.Response {
	if resp, stop := s.notInitialized(); stop {
		return resp
	}
	if !s.encryptionEnabled {
		return msg.Success("Encryption already disabled", nil)
	}

	path := s.bookmarksPath()
	if err := s.store.DisableEncryption(path); err != nil {
		return msg.Error(CodeDisableEncryption, fmt.Sprintf("Failed to disable encryption: %v", err))
	}
	s.encryptionEnabled = false

	if _, err := os.Stat(path); err == nil {
		if resp, ok := s.commitAndPush(ctx, "Disable encryption"); !ok {
			return resp
		}
	}
	return msg.Success("Encryption disabled", nil)
}

// commitAndPush records the current bookmarks file state. The second
// return is false when the response is an error to surface.
func (s *Session) commitAndPush(ctx context.Context, message string) (msg.Response, bool) {
	repo, err := vcs.Open(s.repoPath, s.auth)
	if err != nil {
		return msg.Error(CodeOpenRepo, fmt.Sprintf("Failed to open repository: %v", err)), false
	}
	if err := repo.Stage(BookmarksFile); err != nil {
		return msg.Error(CodeGitAdd, fmt.Sprintf("Failed to stage file: %v", err)), false
	}
	if _, err := repo.Commit(message); err != nil {
		return msg.Error(CodeGitCommit, fmt.Sprintf("Failed to commit: %v", err)), false
	}
	if repo.HasRemote(vcs.DefaultRemote) {
		if err := repo.Push(ctx, vcs.DefaultRemote, vcs.DefaultBranch); err != nil {
			return msg.Error(CodeGitPush, fmt.Sprintf("Failed to push: %v", err)), false
		}
	}
	return msg.Response{}, true
}
