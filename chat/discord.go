package chat

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordClient реализует Client поверх discordgo. Клиент привязан к одной
// гильдии при создании — никакого глобального "текущего" guild.
type discordClient struct {
	session *discordgo.Session
	guildID string
}

// NewDiscordClient открывает сессию бота и привязывает её к гильдии.
func NewDiscordClient(token, guildID string) (Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}

	if _, err := session.Guild(guildID); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to resolve guild %s: %w", guildID, err)
	}

	return &discordClient{session: session, guildID: guildID}, nil
}

func channelKind(t discordgo.ChannelType) (ChannelKind, bool) {
	switch t {
	case discordgo.ChannelTypeGuildCategory:
		return KindCategory, true
	case discordgo.ChannelTypeGuildText:
		return KindText, true
	case discordgo.ChannelTypeGuildVoice:
		return KindVoice, true
	case discordgo.ChannelTypeGuildForum:
		return KindForum, true
	case discordgo.ChannelTypeGuildPublicThread:
		return KindThread, true
	}
	return 0, false
}

func toChannel(ch *discordgo.Channel) (Channel, bool) {
	kind, ok := channelKind(ch.Type)
	if !ok {
		return Channel{}, false
	}
	return Channel{ID: ch.ID, ParentID: ch.ParentID, Name: ch.Name, Kind: kind}, true
}

// Channels возвращает каналы гильдии вместе с активными тредами:
// GET /guilds/:id/channels треды не включает.
func (c *discordClient) Channels(ctx context.Context) ([]Channel, error) {
	guildChannels, err := c.session.GuildChannels(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	channels := make([]Channel, 0, len(guildChannels))
	for _, ch := range guildChannels {
		if converted, ok := toChannel(ch); ok {
			channels = append(channels, converted)
		}
	}

	threads, err := c.session.GuildThreadsActive(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	for _, th := range threads.Threads {
		if converted, ok := toChannel(th); ok {
			channels = append(channels, converted)
		}
	}
	return channels, nil
}

func toDiscordPermission(p Permission) int64 {
	var bits int64
	if p&PermViewChannel != 0 {
		bits |= discordgo.PermissionViewChannel
	}
	if p&PermSendMessagesInThreads != 0 {
		bits |= discordgo.PermissionSendMessagesInThreads
	}
	if p&PermCreatePublicThreads != 0 {
		bits |= discordgo.PermissionCreatePublicThreads
	}
	if p&PermCreatePrivateThreads != 0 {
		bits |= discordgo.PermissionCreatePrivateThreads
	}
	if p&PermManageThreads != 0 {
		bits |= discordgo.PermissionManageThreads
	}
	return bits
}

func (c *discordClient) CreateCategory(ctx context.Context, name string, overwrites []PermissionOverwrite) (*Channel, error) {
	discordOverwrites := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, ow := range overwrites {
		roleID := ow.RoleID
		if roleID == "" {
			// Роль @everyone имеет ID гильдии.
			roleID = c.guildID
		}
		discordOverwrites = append(discordOverwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: toDiscordPermission(ow.Allow),
			Deny:  toDiscordPermission(ow.Deny),
		})
	}

	created, err := c.session.GuildChannelCreateComplex(c.guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: discordOverwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	converted, _ := toChannel(created)
	return &converted, nil
}

func (c *discordClient) createChannel(ctx context.Context, name, parentID string, channelType discordgo.ChannelType) (*Channel, error) {
	created, err := c.session.GuildChannelCreateComplex(c.guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     channelType,
		ParentID: parentID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	converted, _ := toChannel(created)
	return &converted, nil
}

func (c *discordClient) CreateText(ctx context.Context, name, parentID string) (*Channel, error) {
	return c.createChannel(ctx, name, parentID, discordgo.ChannelTypeGuildText)
}

func (c *discordClient) CreateVoice(ctx context.Context, name, parentID string) (*Channel, error) {
	return c.createChannel(ctx, name, parentID, discordgo.ChannelTypeGuildVoice)
}

func (c *discordClient) CreateForum(ctx context.Context, name, parentID string, tags []Tag) (*Channel, error) {
	forum, err := c.createChannel(ctx, name, parentID, discordgo.ChannelTypeGuildForum)
	if err != nil {
		return nil, err
	}
	// Создание канала не принимает availableTags, поэтому метки
	// навешиваются отдельным edit.
	if len(tags) > 0 {
		if err := c.SetForumTags(ctx, forum.ID, tags); err != nil {
			return nil, err
		}
	}
	return forum, nil
}

func (c *discordClient) CreateThread(ctx context.Context, forumID, name string, tagIDs []string, starter *Embed) (*Channel, error) {
	message := &discordgo.MessageSend{Content: name}
	if starter != nil {
		embed := &discordgo.MessageEmbed{
			Title:       starter.Title,
			Description: starter.Description,
			URL:         starter.URL,
		}
		for fieldName, value := range starter.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  fieldName,
				Value: value,
			})
		}
		message = &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	}

	thread, err := c.session.ForumThreadStartComplex(forumID, &discordgo.ThreadStart{
		Name:        name,
		AppliedTags: tagIDs,
	}, message, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	// Стартовое сообщение треда форума имеет ID самого треда.
	if err := c.session.ChannelMessagePin(thread.ID, thread.ID, discordgo.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("%w: failed to pin starter message: %w", ErrUnavailable, err)
	}

	converted, _ := toChannel(thread)
	return &converted, nil
}

func (c *discordClient) RenameChannel(ctx context.Context, id, name string) error {
	_, err := c.session.ChannelEdit(id, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *discordClient) DeleteChannel(ctx context.Context, id string) error {
	if _, err := c.session.ChannelDelete(id, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *discordClient) ForumTags(ctx context.Context, forumID string) ([]Tag, error) {
	forum, err := c.session.Channel(forumID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	tags := make([]Tag, 0, len(forum.AvailableTags))
	for _, tag := range forum.AvailableTags {
		tags = append(tags, Tag{ID: tag.ID, Name: tag.Name, Emoji: tag.EmojiName})
	}
	return tags, nil
}

func (c *discordClient) SetForumTags(ctx context.Context, forumID string, tags []Tag) error {
	discordTags := make([]discordgo.ForumTag, 0, len(tags))
	for _, tag := range tags {
		discordTags = append(discordTags, discordgo.ForumTag{
			ID:        tag.ID,
			Name:      tag.Name,
			EmojiName: tag.Emoji,
		})
	}
	_, err := c.session.ChannelEdit(forumID, &discordgo.ChannelEdit{
		AvailableTags: &discordTags,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *discordClient) AppliedTags(ctx context.Context, threadID string) ([]string, error) {
	thread, err := c.session.Channel(threadID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return thread.AppliedTags, nil
}

func (c *discordClient) SetAppliedTags(ctx context.Context, threadID string, tagIDs []string) error {
	_, err := c.session.ChannelEdit(threadID, &discordgo.ChannelEdit{
		AppliedTags: &tagIDs,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *discordClient) SendMessage(ctx context.Context, channelID, content string) error {
	if _, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *discordClient) Roles(ctx context.Context) ([]Role, error) {
	guildRoles, err := c.session.GuildRoles(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	roles := make([]Role, 0, len(guildRoles))
	for _, role := range guildRoles {
		roles = append(roles, Role{ID: role.ID, Name: role.Name})
	}
	return roles, nil
}

func (c *discordClient) CreateRole(ctx context.Context, name string) (*Role, error) {
	mentionable := true
	created, err := c.session.GuildRoleCreate(c.guildID, &discordgo.RoleParams{
		Name:        name,
		Mentionable: &mentionable,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &Role{ID: created.ID, Name: created.Name}, nil
}

func (c *discordClient) RenameRole(ctx context.Context, roleID, name string) error {
	_, err := c.session.GuildRoleEdit(c.guildID, roleID, &discordgo.RoleParams{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *discordClient) DeleteRole(ctx context.Context, roleID string) error {
	if err := c.session.GuildRoleDelete(c.guildID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *discordClient) AddMemberRole(ctx context.Context, memberID, roleID string) error {
	if err := c.session.GuildMemberRoleAdd(c.guildID, memberID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *discordClient) RemoveMemberRole(ctx context.Context, memberID, roleID string) error {
	if err := c.session.GuildMemberRoleRemove(c.guildID, memberID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *discordClient) MemberDisplayName(ctx context.Context, memberID string) (string, error) {
	member, err := c.session.GuildMember(c.guildID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if member.Nick != "" {
		return member.Nick, nil
	}
	if member.User != nil {
		if member.User.GlobalName != "" {
			return member.User.GlobalName, nil
		}
		return member.User.Username, nil
	}
	return memberID, nil
}
