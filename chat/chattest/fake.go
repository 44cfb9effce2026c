// Package chattest содержит in-memory реализацию chat.Client для тестов
// движка синхронизации.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"github.com/cybermouflons/CTFNote/chat"
)

// FakeClient имитирует гильдию: каналы, треды, метки форумов, роли и
// членство. Каждый мутирующий вызов записывается в Calls, чтобы тесты
// могли проверять порядок операций.
type FakeClient struct {
	mu     sync.Mutex
	nextID int

	channels    map[string]chat.Channel
	forumTags   map[string][]chat.Tag
	appliedTags map[string][]string
	pinned      map[string]bool
	messages    map[string][]string
	roles       map[string]chat.Role
	members     map[string]map[string]bool // memberID -> set of roleIDs
	names       map[string]string          // memberID -> display name

	// MaxForumTags имитирует лимит определений меток на форум (0 — без лимита).
	MaxForumTags int
	// Err, если установлен, возвращается из каждого вызова (remote-unavailable).
	Err error

	Calls []string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		channels:    make(map[string]chat.Channel),
		forumTags:   make(map[string][]chat.Tag),
		appliedTags: make(map[string][]string),
		pinned:      make(map[string]bool),
		messages:    make(map[string][]string),
		roles:       make(map[string]chat.Role),
		members:     make(map[string]map[string]bool),
		names:       make(map[string]string),
	}
}

func (f *FakeClient) genID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *FakeClient) record(format string, args ...interface{}) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *FakeClient) Channels(_ context.Context) ([]chat.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]chat.Channel, 0, len(f.channels))
	for _, ch := range f.channels {
		out = append(out, ch)
	}
	return out, nil
}

func (f *FakeClient) createChannel(name, parentID string, kind chat.ChannelKind) (*chat.Channel, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	ch := chat.Channel{ID: f.genID(), ParentID: parentID, Name: name, Kind: kind}
	f.channels[ch.ID] = ch
	return &ch, nil
}

func (f *FakeClient) CreateCategory(_ context.Context, name string, _ []chat.PermissionOverwrite) (*chat.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateCategory(%s)", name)
	return f.createChannel(name, "", chat.KindCategory)
}

func (f *FakeClient) CreateText(_ context.Context, name, parentID string) (*chat.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateText(%s)", name)
	return f.createChannel(name, parentID, chat.KindText)
}

func (f *FakeClient) CreateVoice(_ context.Context, name, parentID string) (*chat.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateVoice(%s)", name)
	return f.createChannel(name, parentID, chat.KindVoice)
}

func (f *FakeClient) CreateForum(_ context.Context, name, parentID string, tags []chat.Tag) (*chat.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateForum(%s)", name)
	forum, err := f.createChannel(name, parentID, chat.KindForum)
	if err != nil {
		return nil, err
	}
	stored := make([]chat.Tag, 0, len(tags))
	for _, tag := range tags {
		tag.ID = f.genID()
		stored = append(stored, tag)
	}
	f.forumTags[forum.ID] = stored
	return forum, nil
}

func (f *FakeClient) CreateThread(_ context.Context, forumID, name string, tagIDs []string, _ *chat.Embed) (*chat.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateThread(%s)", name)
	if f.Err != nil {
		return nil, f.Err
	}
	if _, ok := f.channels[forumID]; !ok {
		return nil, chat.ErrChannelNotFound
	}
	thread, err := f.createChannel(name, forumID, chat.KindThread)
	if err != nil {
		return nil, err
	}
	f.appliedTags[thread.ID] = append([]string(nil), tagIDs...)
	f.pinned[thread.ID] = true
	return thread, nil
}

func (f *FakeClient) RenameChannel(_ context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RenameChannel(%s->%s)", id, name)
	if f.Err != nil {
		return f.Err
	}
	ch, ok := f.channels[id]
	if !ok {
		return chat.ErrChannelNotFound
	}
	ch.Name = name
	f.channels[id] = ch
	return nil
}

func (f *FakeClient) DeleteChannel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteChannel(%s)", id)
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.channels[id]; !ok {
		return chat.ErrChannelNotFound
	}
	delete(f.channels, id)
	delete(f.forumTags, id)
	delete(f.appliedTags, id)
	// Треды удаляются вместе с родителем.
	for childID, ch := range f.channels {
		if ch.ParentID == id {
			delete(f.channels, childID)
			delete(f.appliedTags, childID)
		}
	}
	return nil
}

func (f *FakeClient) ForumTags(_ context.Context, forumID string) ([]chat.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if _, ok := f.channels[forumID]; !ok {
		return nil, chat.ErrChannelNotFound
	}
	return append([]chat.Tag(nil), f.forumTags[forumID]...), nil
}

func (f *FakeClient) SetForumTags(_ context.Context, forumID string, tags []chat.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetForumTags(%s)", forumID)
	if f.Err != nil {
		return f.Err
	}
	if f.MaxForumTags > 0 && len(tags) > f.MaxForumTags {
		return chat.ErrTagLimitReached
	}
	stored := make([]chat.Tag, 0, len(tags))
	for _, tag := range tags {
		if tag.ID == "" {
			tag.ID = f.genID()
		}
		stored = append(stored, tag)
	}
	f.forumTags[forumID] = stored
	return nil
}

func (f *FakeClient) AppliedTags(_ context.Context, threadID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if _, ok := f.channels[threadID]; !ok {
		return nil, chat.ErrChannelNotFound
	}
	return append([]string(nil), f.appliedTags[threadID]...), nil
}

func (f *FakeClient) SetAppliedTags(_ context.Context, threadID string, tagIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetAppliedTags(%s)", threadID)
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.channels[threadID]; !ok {
		return chat.ErrChannelNotFound
	}
	f.appliedTags[threadID] = append([]string(nil), tagIDs...)
	return nil
}

func (f *FakeClient) SendMessage(_ context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SendMessage(%s)", channelID)
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.channels[channelID]; !ok {
		return chat.ErrChannelNotFound
	}
	f.messages[channelID] = append(f.messages[channelID], content)
	return nil
}

func (f *FakeClient) Roles(_ context.Context) ([]chat.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]chat.Role, 0, len(f.roles))
	for _, role := range f.roles {
		out = append(out, role)
	}
	return out, nil
}

func (f *FakeClient) CreateRole(_ context.Context, name string) (*chat.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateRole(%s)", name)
	if f.Err != nil {
		return nil, f.Err
	}
	role := chat.Role{ID: f.genID(), Name: name}
	f.roles[role.ID] = role
	return &role, nil
}

func (f *FakeClient) RenameRole(_ context.Context, roleID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RenameRole(%s->%s)", roleID, name)
	if f.Err != nil {
		return f.Err
	}
	role, ok := f.roles[roleID]
	if !ok {
		return chat.ErrRoleNotFound
	}
	role.Name = name
	f.roles[roleID] = role
	return nil
}

func (f *FakeClient) DeleteRole(_ context.Context, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteRole(%s)", roleID)
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.roles[roleID]; !ok {
		return chat.ErrRoleNotFound
	}
	delete(f.roles, roleID)
	for _, memberRoles := range f.members {
		delete(memberRoles, roleID)
	}
	return nil
}

func (f *FakeClient) AddMemberRole(_ context.Context, memberID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddMemberRole(%s,%s)", memberID, roleID)
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.roles[roleID]; !ok {
		return chat.ErrRoleNotFound
	}
	if f.members[memberID] == nil {
		f.members[memberID] = make(map[string]bool)
	}
	f.members[memberID][roleID] = true
	return nil
}

func (f *FakeClient) RemoveMemberRole(_ context.Context, memberID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveMemberRole(%s,%s)", memberID, roleID)
	if f.Err != nil {
		return f.Err
	}
	delete(f.members[memberID], roleID)
	return nil
}

func (f *FakeClient) MemberDisplayName(_ context.Context, memberID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	if name, ok := f.names[memberID]; ok {
		return name, nil
	}
	return memberID, nil
}

// --- Помощники для подготовки и проверки состояния ---

// SeedChannel регистрирует существующий канал (например, конфликт имён).
func (f *FakeClient) SeedChannel(name, parentID string, kind chat.ChannelKind) chat.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := chat.Channel{ID: f.genID(), ParentID: parentID, Name: name, Kind: kind}
	f.channels[ch.ID] = ch
	return ch
}

// SeedRole регистрирует существующую роль.
func (f *FakeClient) SeedRole(name string) chat.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	role := chat.Role{ID: f.genID(), Name: name}
	f.roles[role.ID] = role
	return role
}

// SeedMember задаёт членство и отображаемое имя участника.
func (f *FakeClient) SeedMember(memberID, displayName string, roleIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[memberID] = displayName
	if f.members[memberID] == nil {
		f.members[memberID] = make(map[string]bool)
	}
	for _, roleID := range roleIDs {
		f.members[memberID][roleID] = true
	}
}

// MemberRoles возвращает набор ролей участника.
func (f *FakeClient) MemberRoles(memberID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.members[memberID]))
	for roleID := range f.members[memberID] {
		out = append(out, roleID)
	}
	return out
}

// ChannelByID возвращает канал и признак его существования.
func (f *FakeClient) ChannelByID(id string) (chat.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	return ch, ok
}

// Messages возвращает сообщения, отправленные в канал.
func (f *FakeClient) Messages(channelID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages[channelID]...)
}

// Pinned сообщает, закреплено ли стартовое сообщение треда.
func (f *FakeClient) Pinned(threadID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pinned[threadID]
}
