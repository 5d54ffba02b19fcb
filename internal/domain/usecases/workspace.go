// Package usecases contains application business rules.
// Usecases orchestrate entities and depend only on port interfaces.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
	"github.com/0xcro3dile/ao-assistant/internal/domain/ports"
)

// WorkspaceConfig tunes the timers of the workspace.
type WorkspaceConfig struct {
	// SettleDelay separates consecutive files of a batch upload.
	SettleDelay time.Duration
	// ClearAfterSuccess and ClearAfterError control how long a finished
	// progress banner stays visible.
	ClearAfterSuccess time.Duration
	ClearAfterError   time.Duration
}

// DefaultWorkspaceConfig returns the stock timings.
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		SettleDelay:       500 * time.Millisecond,
		ClearAfterSuccess: 2 * time.Second,
		ClearAfterError:   5 * time.Second,
	}
}

// Workspace owns the assistant view-model. All mutations go through reducers
// applied to the latest state; readers get deep copies via Snapshot or
// Subscribe.
type Workspace struct {
	backend ports.ChatBackend
	store   ports.StateStore
	preview ports.PreviewExtractor
	cfg     WorkspaceConfig
	now     func() time.Time

	mu       sync.Mutex
	state    State
	subs     map[int]func(State)
	nextSub  int
	timers   map[uint64]*time.Timer
	closed   bool
	stopAuth func()

	// persistMu orders store writes the same way as state commits.
	persistMu sync.Mutex
}

// NewWorkspace creates a Workspace with injected dependencies.
// preview may be nil.
func NewWorkspace(
	backend ports.ChatBackend,
	store ports.StateStore,
	preview ports.PreviewExtractor,
	cfg WorkspaceConfig,
) *Workspace {
	if cfg.ClearAfterSuccess <= 0 {
		cfg.ClearAfterSuccess = 2 * time.Second
	}
	if cfg.ClearAfterError <= 0 {
		cfg.ClearAfterError = 5 * time.Second
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	return &Workspace{
		backend: backend,
		store:   store,
		preview: preview,
		cfg:     cfg,
		now:     time.Now,
		state: State{
			Conversations:    []entities.Conversation{},
			ProfileDocuments: []entities.UploadedDocument{},
		},
		subs:   make(map[int]func(State)),
		timers: make(map[uint64]*time.Timer),
	}
}

// Snapshot returns a copy of the current state.
func (w *Workspace) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// Subscribe calls fn with a copy of the state after every change and returns
// a function that stops the notifications. fn must not block.
func (w *Workspace) Subscribe(fn func(State)) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// commit applies r and persists the durable part of the result.
func (w *Workspace) commit(r Reducer) {
	w.apply(r, true)
}

// transient applies r without touching the store.
func (w *Workspace) transient(r Reducer) {
	w.apply(r, false)
}

func (w *Workspace) apply(r Reducer, persist bool) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.state = r(w.state)
	snap := w.state.clone()
	subs := make([]func(State), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	if persist {
		w.persistMu.Lock()
	}
	w.mu.Unlock()

	if persist {
		w.save(snap)
		w.persistMu.Unlock()
	}
	for _, fn := range subs {
		fn(snap)
	}
}

func (w *Workspace) save(s State) {
	if w.store == nil {
		return
	}
	err := w.store.SaveState(context.Background(), entities.PersistedState{
		Settings:         s.Settings,
		Conversations:    s.Conversations,
		ProfileDocuments: s.ProfileDocuments,
	})
	if err != nil {
		slog.Warn("failed to persist state", "error", err)
	}
}

// Restore loads the persisted state without contacting the backend.
func (w *Workspace) Restore(ctx context.Context) {
	if w.store == nil {
		return
	}
	persisted, err := w.store.LoadState(ctx)
	if err != nil {
		slog.Warn("failed to restore persisted state", "error", err)
		return
	}
	if persisted == nil {
		return
	}
	w.transient(func(s State) State {
		s.Settings = persisted.Settings
		s.Conversations = MergeConversations(persisted.Conversations, s.Conversations)
		s.ProfileDocuments = MergeDocuments(persisted.ProfileDocuments, s.ProfileDocuments)
		return s
	})
}

// Load restores the persisted state and reconciles it with the backend
// listings. Local data the backend does not know about is kept.
func (w *Workspace) Load(ctx context.Context) error {
	w.Restore(ctx)

	// Fetch both listings concurrently
	var (
		remoteConvs []entities.RemoteConversation
		remoteDocs  []entities.RemoteDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		convs, err := w.backend.ListConversations(gctx)
		if err != nil {
			return fmt.Errorf("listing conversations: %w", err)
		}
		remoteConvs = convs
		return nil
	})
	g.Go(func() error {
		docs, err := w.backend.ListDocuments(gctx)
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}
		remoteDocs = docs
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Partition documents and merge against the latest state
	byConversation, profile := PartitionDocuments(remoteDocs)
	remote := BuildConversations(remoteConvs, byConversation)
	w.commit(func(s State) State {
		s = setConversations(MergeConversations(s.Conversations, remote))(s)
		return setProfileDocuments(MergeDocuments(s.ProfileDocuments, profile))(s)
	})

	slog.Info("workspace loaded",
		"conversations", len(remoteConvs),
		"documents", len(remoteDocs),
	)
	return nil
}

// CreateConversation registers a new conversation with the backend, adds it
// in front of the list and makes it active. An empty title gets a numbered
// default.
func (w *Workspace) CreateConversation(ctx context.Context, title string) (*entities.Conversation, error) {
	if title == "" {
		title = fmt.Sprintf("Conversation %d", len(w.Snapshot().Conversations)+1)
	}

	id, err := w.backend.CreateConversation(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	now := w.now()
	conv := entities.Conversation{
		ID:        id,
		Title:     title,
		Messages:  []entities.Message{},
		Documents: []entities.UploadedDocument{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	w.commit(func(s State) State {
		return setActive(id)(addConversation(conv)(s))
	})
	return &conv, nil
}

// SelectConversation makes id active. History is pulled from the backend only
// when no messages are held locally; a backend without history support is
// not an error here.
func (w *Workspace) SelectConversation(ctx context.Context, id string) error {
	conv, ok := w.Snapshot().Conversation(id)
	if !ok {
		return entities.ErrConversationNotFound
	}
	w.commit(setActive(id))

	if len(conv.Messages) == 0 {
		if err := w.pullHistory(ctx, conv); err != nil && !errors.Is(err, entities.ErrUnsupported) {
			return err
		}
	}

	w.syncIndexDocuments(ctx, conv)
	return nil
}

// ResyncHistory replaces the local messages of id with the backend history.
func (w *Workspace) ResyncHistory(ctx context.Context, id string) error {
	conv, ok := w.Snapshot().Conversation(id)
	if !ok {
		return entities.ErrConversationNotFound
	}
	return w.pullHistory(ctx, conv)
}

func (w *Workspace) pullHistory(ctx context.Context, conv entities.Conversation) error {
	pairs, err := w.backend.ConversationHistory(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}
	messages := ExpandHistory(conv.ID, conv.CreatedAt, pairs)
	w.commit(replaceMessages(conv.ID, messages))

	slog.Debug("history synchronized", "conversation", conv.ID, "messages", len(messages))
	return nil
}

// syncIndexDocuments refreshes the document list from the backend index when
// the backend can enumerate it and the counts disagree.
func (w *Workspace) syncIndexDocuments(ctx context.Context, conv entities.Conversation) {
	syncer, ok := w.backend.(ports.DocumentSyncer)
	if !ok || conv.IndexHandle == "" {
		return
	}
	docs, err := syncer.IndexDocuments(ctx, conv.IndexHandle)
	if err != nil {
		slog.Warn("failed to sync conversation documents", "conversation", conv.ID, "error", err)
		return
	}
	if len(docs) != len(conv.Documents) {
		w.commit(replaceDocuments(conv.ID, docs))
	}
}

// DeleteConversation removes id locally. The backend copy is left alone.
func (w *Workspace) DeleteConversation(id string) error {
	if _, ok := w.Snapshot().Conversation(id); !ok {
		return entities.ErrConversationNotFound
	}
	w.commit(removeConversation(id))
	return nil
}

// SendMessage posts text to conversation id (the active one when id is empty)
// and returns the assistant reply. While the reply streams, State.Streaming
// holds the partial text; it is cleared on every exit path.
func (w *Workspace) SendMessage(ctx context.Context, id, text string, onProgress func(content string)) (*entities.Message, error) {
	snap := w.Snapshot()
	if id == "" {
		id = snap.ActiveID
	}
	if id == "" {
		return nil, entities.ErrNoActiveConversation
	}
	conv, ok := snap.Conversation(id)
	if !ok {
		return nil, entities.ErrConversationNotFound
	}

	// 1. Record the user turn
	userMsg := entities.Message{
		ID:        uuid.NewString(),
		Role:      entities.RoleUser,
		Content:   text,
		Timestamp: w.now(),
	}
	w.commit(appendMessages(id, userMsg.Timestamp, userMsg))

	// 2. Show an empty placeholder until the first increment
	w.transient(setStreaming(&entities.Message{
		ID:        "streaming-" + uuid.NewString(),
		Role:      entities.RoleAssistant,
		Timestamp: w.now(),
	}))

	turn := entities.ChatTurn{
		ConversationID: id,
		Text:           text,
		History:        conv.Messages,
		Documents:      append(append([]entities.UploadedDocument(nil), conv.Documents...), snap.ProfileDocuments...),
		IndexHandle:    conv.IndexHandle,
	}
	reply, err := w.backend.SendMessage(ctx, turn, func(content string) {
		w.transient(streamContent(content))
		if onProgress != nil {
			onProgress(content)
		}
	})
	if err != nil {
		w.transient(setStreaming(nil))
		return nil, fmt.Errorf("sending message: %w", err)
	}

	// 3. Swap the placeholder for the final reply in one step
	w.commit(func(s State) State {
		s = setStreaming(nil)(s)
		return appendMessages(id, w.now(), *reply)(s)
	})
	return reply, nil
}

// UploadDocument uploads one project document to conversation id.
func (w *Workspace) UploadDocument(ctx context.Context, id string, file entities.FilePayload) (*entities.UploadedDocument, error) {
	if _, ok := w.Snapshot().Conversation(id); !ok {
		return nil, entities.ErrConversationNotFound
	}

	progress := w.startUpload(conversationUploadSteps)
	defer w.transient(setUploading(false))

	// upload -> process
	w.transient(updateProgress(UploadProgress.Advance))

	result, err := w.backend.UploadDocument(ctx, entities.UploadRequest{
		File:           file,
		Type:           entities.ProjectDoc,
		ConversationID: id,
		IndexHandle:    w.indexHandle(id),
	})
	if err == nil && !result.Success {
		err = uploadRejected(result)
	}
	if err != nil {
		w.failUpload(progress, err)
		return nil, fmt.Errorf("uploading %s: %w", file.Name, err)
	}

	// process -> index
	w.transient(updateProgress(UploadProgress.Advance))

	doc := w.newDocument(ctx, file, result, entities.ProjectDoc, id)
	w.commit(attachDocuments(id, result.IndexHandle, w.now(), doc))

	w.finishUpload(progress)
	return &doc, nil
}

// UploadDocuments uploads files one after the other to conversation id.
// A file that fails is skipped; the documents that made it are attached
// together with the last index handle the backend returned.
func (w *Workspace) UploadDocuments(ctx context.Context, id string, files []entities.FilePayload) ([]entities.UploadedDocument, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if _, ok := w.Snapshot().Conversation(id); !ok {
		return nil, entities.ErrConversationNotFound
	}

	steps := append([]ProgressStep(nil), conversationUploadSteps...)
	steps[0].Label = fmt.Sprintf("Uploading %d files", len(files))
	progress := w.startUpload(steps)
	defer w.transient(setUploading(false))

	handle := w.indexHandle(id)
	docs := make([]entities.UploadedDocument, 0, len(files))
	var ctxErr error

	for i, file := range files {
		w.transient(updateProgress(func(p UploadProgress) UploadProgress {
			return p.Relabel("upload", fmt.Sprintf("Uploading %d/%d: %s", i+1, len(files), file.Name))
		}))

		result, err := w.backend.UploadDocument(ctx, entities.UploadRequest{
			File:           file,
			Type:           entities.ProjectDoc,
			ConversationID: id,
			IndexHandle:    handle,
		})
		if err == nil && !result.Success {
			err = uploadRejected(result)
		}
		if err != nil {
			slog.Warn("batch upload: skipping file", "file", file.Name, "error", err)
		} else {
			if result.IndexHandle != "" {
				handle = result.IndexHandle
			}
			docs = append(docs, w.newDocument(ctx, file, result, entities.ProjectDoc, id))
		}

		if i < len(files)-1 {
			if ctxErr = sleepCtx(ctx, w.cfg.SettleDelay); ctxErr != nil {
				break
			}
		}
	}

	if len(docs) > 0 {
		w.commit(attachDocuments(id, handle, w.now(), docs...))
	}

	switch {
	case ctxErr != nil:
		w.failUpload(progress, ctxErr)
		return docs, ctxErr
	case len(docs) == 0:
		err := fmt.Errorf("%w: no file of the batch was accepted", entities.ErrUploadRejected)
		w.failUpload(progress, err)
		return docs, err
	}

	w.finishUpload(progress)
	slog.Info("batch upload finished", "conversation", id, "uploaded", len(docs), "total", len(files))
	return docs, nil
}

// UploadProfileDocument uploads a document visible across conversations.
func (w *Workspace) UploadProfileDocument(ctx context.Context, file entities.FilePayload) (*entities.UploadedDocument, error) {
	progress := w.startUpload(profileUploadSteps)
	defer w.transient(setUploading(false))

	// upload -> process
	w.transient(updateProgress(UploadProgress.Advance))

	result, err := w.backend.UploadDocument(ctx, entities.UploadRequest{
		File: file,
		Type: entities.UserDoc,
	})
	if err == nil && !result.Success {
		err = uploadRejected(result)
	}
	if err != nil {
		w.failUpload(progress, err)
		return nil, fmt.Errorf("uploading %s: %w", file.Name, err)
	}

	// process -> complete
	w.transient(updateProgress(UploadProgress.Advance))

	doc := w.newDocument(ctx, file, result, entities.UserDoc, "")
	w.commit(addProfileDocument(doc))

	w.finishUpload(progress)
	return &doc, nil
}

// DeleteProfileDocument removes a profile document locally.
func (w *Workspace) DeleteProfileDocument(id string) error {
	found := false
	for _, d := range w.Snapshot().ProfileDocuments {
		if d.ID == id {
			found = true
			break
		}
	}
	if !found {
		return entities.ErrDocumentNotFound
	}
	w.commit(removeProfileDocument(id))
	return nil
}

// UpdateSettings replaces the persisted settings.
func (w *Workspace) UpdateSettings(settings entities.AppSettings) {
	w.commit(setSettings(settings))
}

// SetUser records the signed-in identity; nil signs out.
func (w *Workspace) SetUser(u *entities.User) {
	w.transient(setUser(u))
}

// WatchAuth mirrors the session of auth into the state until Close.
func (w *Workspace) WatchAuth(ctx context.Context, auth ports.AuthProvider) {
	if session, err := auth.CurrentSession(ctx); err == nil && session != nil {
		u := session.User
		w.SetUser(&u)
	}

	stop := auth.OnAuthStateChange(func(event ports.AuthEvent, session *entities.Session) {
		if session == nil || event == ports.AuthSignedOut {
			w.SetUser(nil)
			return
		}
		u := session.User
		w.SetUser(&u)
	})

	w.mu.Lock()
	prev := w.stopAuth
	w.stopAuth = stop
	w.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Close stops timers and subscriptions. Later updates are dropped.
func (w *Workspace) Close() {
	w.mu.Lock()
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[uint64]*time.Timer)
	stop := w.stopAuth
	w.stopAuth = nil
	w.subs = make(map[int]func(State))
	w.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (w *Workspace) indexHandle(id string) string {
	c, _ := w.Snapshot().Conversation(id)
	return c.IndexHandle
}

func (w *Workspace) startUpload(steps []ProgressStep) *UploadProgress {
	p := NewProgress(steps)
	w.transient(func(s State) State {
		return setProgress(&p)(setUploading(true)(s))
	})
	return &p
}

func (w *Workspace) finishUpload(p *UploadProgress) {
	w.transient(updateProgress(UploadProgress.Complete))
	w.scheduleClear(p, w.cfg.ClearAfterSuccess)
}

func (w *Workspace) failUpload(p *UploadProgress, err error) {
	slog.Error("upload failed", "error", err)
	w.transient(updateProgress(func(cur UploadProgress) UploadProgress {
		return cur.Fail(err)
	}))
	w.scheduleClear(p, w.cfg.ClearAfterError)
}

func (w *Workspace) scheduleClear(p *UploadProgress, after time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if old, ok := w.timers[p.token]; ok {
		old.Stop()
	}
	w.timers[p.token] = time.AfterFunc(after, func() {
		w.mu.Lock()
		delete(w.timers, p.token)
		w.mu.Unlock()
		w.transient(clearProgress(p))
	})
}

func (w *Workspace) newDocument(
	ctx context.Context,
	file entities.FilePayload,
	result *entities.UploadResult,
	docType entities.DocumentType,
	conversationID string,
) entities.UploadedDocument {
	content := result.Content
	if content == "" && w.preview != nil {
		preview, err := w.preview.Preview(ctx, file)
		if err != nil {
			slog.Debug("no local preview", "file", file.Name, "error", err)
		}
		content = preview
	}
	return entities.UploadedDocument{
		ID:             uuid.NewString(),
		Name:           file.Name,
		Size:           file.Size,
		UploadedAt:     w.now(),
		Vectorized:     true,
		Content:        content,
		FileHandle:     result.FileHandle,
		Type:           docType,
		ConversationID: conversationID,
	}
}

func uploadRejected(result *entities.UploadResult) error {
	if result.Content != "" {
		return fmt.Errorf("%w: %s", entities.ErrUploadRejected, result.Content)
	}
	return entities.ErrUploadRejected
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
