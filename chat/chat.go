// Package chat описывает интерфейс чат-платформы, потребляемый движком
// синхронизации. Реализация для Discord — в discord.go, in-memory фейк
// для тестов — в chattest.
package chat

import (
	"context"
	"errors"
)

var (
	ErrUnavailable     = errors.New("chat platform unavailable")
	ErrChannelNotFound = errors.New("channel not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrTagLimitReached = errors.New("forum tag limit reached")
)

type ChannelKind int

const (
	KindCategory ChannelKind = iota
	KindText
	KindVoice
	KindForum
	KindThread
)

// Channel — любой канальный объект гильдии: категория, текстовый или
// голосовой канал, форум либо тред форума (ParentID треда — его форум).
type Channel struct {
	ID       string
	ParentID string
	Name     string
	Kind     ChannelKind
}

// Tag — определение метки на уровне форума.
type Tag struct {
	ID    string
	Name  string
	Emoji string
}

type Role struct {
	ID   string
	Name string
}

// Permission — битовая маска прав, используемых синхронизацией.
type Permission uint

const (
	PermViewChannel Permission = 1 << iota
	PermSendMessagesInThreads
	PermCreatePublicThreads
	PermCreatePrivateThreads
	PermManageThreads
)

// PermissionOverwrite назначает allow/deny для роли. Пустой RoleID
// означает роль по умолчанию (@everyone).
type PermissionOverwrite struct {
	RoleID string
	Allow  Permission
	Deny   Permission
}

// Embed — стартовое сообщение треда задачи.
type Embed struct {
	Title       string
	Description string
	URL         string
	Fields      map[string]string
}

// Client — клиент, привязанный к одной гильдии на всё время жизни.
// Ошибки любых вызовов считаются транзиентными: вызывающая сторона
// логирует и прекращает текущую последовательность, без повторов.
type Client interface {
	Channels(ctx context.Context) ([]Channel, error)
	CreateCategory(ctx context.Context, name string, overwrites []PermissionOverwrite) (*Channel, error)
	CreateText(ctx context.Context, name, parentID string) (*Channel, error)
	CreateVoice(ctx context.Context, name, parentID string) (*Channel, error)
	CreateForum(ctx context.Context, name, parentID string, tags []Tag) (*Channel, error)
	// CreateThread создаёт тред форума со стартовым закреплённым сообщением.
	CreateThread(ctx context.Context, forumID, name string, tagIDs []string, starter *Embed) (*Channel, error)
	RenameChannel(ctx context.Context, id, name string) error
	DeleteChannel(ctx context.Context, id string) error

	ForumTags(ctx context.Context, forumID string) ([]Tag, error)
	SetForumTags(ctx context.Context, forumID string, tags []Tag) error
	AppliedTags(ctx context.Context, threadID string) ([]string, error)
	SetAppliedTags(ctx context.Context, threadID string, tagIDs []string) error

	SendMessage(ctx context.Context, channelID, content string) error

	Roles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, name string) (*Role, error)
	RenameRole(ctx context.Context, roleID, name string) error
	DeleteRole(ctx context.Context, roleID string) error
	AddMemberRole(ctx context.Context, memberID, roleID string) error
	RemoveMemberRole(ctx context.Context, memberID, roleID string) error
	MemberDisplayName(ctx context.Context, memberID string) (string, error)
}
