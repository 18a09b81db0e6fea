package clients

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var _ Interface = &DiscordClient{}
var _ WidgetPresenter = &DiscordClient{}
var _ PromptChannel = &DiscordClient{}
var _ MessageTransport = &DiscordClient{}
var _ RoleService = &DiscordClient{}

const (
	maxOptionsPerMenu  = 25 // platform cap per select menu
	maxMenusPerMessage = 5  // platform cap per message
	memberPageSize     = 1000
)

type selection struct {
	stepID  string
	handler SelectionHandler
}

type DiscordClient struct {
	session *discordgo.Session
	guildID string
	prefix  string
	runner  Runner

	mu         sync.Mutex
	selects    map[string]selection // select menu custom ID -> sink
	msgSelects map[string][]string  // message ID -> its custom IDs, for cleanup
	waiters    map[string]chan string
}

func NewDiscordClientFromConfig(cfg map[string]string) (*DiscordClient, error) {
	token := cfg["token"]
	if token == "" {
		return nil, fmt.Errorf("discord client: token is empty")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	prefix := cfg["command_prefix"]
	if prefix == "" {
		prefix = "!"
	}

	dc := &DiscordClient{
		session:    session,
		guildID:    cfg["guild_id"],
		prefix:     prefix,
		selects:    make(map[string]selection),
		msgSelects: make(map[string][]string),
		waiters:    make(map[string]chan string),
	}

	session.AddHandler(dc.onMessageCreate)
	session.AddHandler(dc.onInteractionCreate)
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	return dc, nil
}

func (c *DiscordClient) Subscribe(r Runner) {
	c.runner = r
}

func (c *DiscordClient) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	log.Info().Msg("Discord client started. Listening for messages and interactions...")
	return nil
}

func (c *DiscordClient) Close() error {
	return c.session.Close()
}

func (c *DiscordClient) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	// A pending prompt for this user in this channel eats the message.
	key := waiterKey(m.ChannelID, m.Author.ID)
	c.mu.Lock()
	ch, waiting := c.waiters[key]
	if waiting {
		delete(c.waiters, key)
	}
	c.mu.Unlock()
	if waiting {
		ch <- m.Content
		return
	}

	if c.runner == nil || !strings.HasPrefix(m.Content, c.prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(m.Content, c.prefix))
	if len(fields) == 0 {
		return
	}
	trigger := fields[0]

	display := m.Author.Username
	if m.Member != nil && m.Member.Nick != "" {
		display = m.Member.Nick
	}

	go func() {
		if err := c.runner.StartRun(context.Background(), trigger, m.ChannelID, m.Author.ID, display); err != nil {
			log.Warn().Err(err).Str("trigger", trigger).Msg("⚠️ Could not start run")
		}
	}()
}

func (c *DiscordClient) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	data := i.MessageComponentData()

	c.mu.Lock()
	sel, ok := c.selects[data.CustomID]
	c.mu.Unlock()

	if !ok {
		c.respondInteraction(s, i, "This control belongs to a finished run.")
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Error acknowledging component interaction")
	}

	values := data.Values
	go sel.handler(sel.stepID, values)
}

func (c *DiscordClient) respondInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Error responding to component interaction")
	}
}

// Present renders one select menu per widget step, splitting oversized option
// lists across menus and grouping at most five menus per message.
func (c *DiscordClient) Present(ctx context.Context, channelID, prompt string, steps []WidgetStep, onSelect SelectionHandler) ([]MessageRef, error) {
	minOne := 1
	var menus []discordgo.SelectMenu
	var customIDs []string

	for _, step := range steps {
		chunks := chunkOptions(step.Options, maxOptionsPerMenu)
		for ci, chunk := range chunks {
			options := make([]discordgo.SelectMenuOption, len(chunk))
			for oi, e := range chunk {
				options[oi] = discordgo.SelectMenuOption{Label: e.Label, Value: e.ID}
			}

			maxValues := 1
			if step.Multiple {
				maxValues = len(chunk)
				if step.MaxChoices > 0 && step.MaxChoices < maxValues {
					maxValues = step.MaxChoices
				}
			}

			placeholder := step.Placeholder
			if len(chunks) > 1 {
				placeholder = fmt.Sprintf("%s (%d/%d)", placeholder, ci+1, len(chunks))
			}

			customID := uuid.NewString()
			customIDs = append(customIDs, customID)
			menus = append(menus, discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    customID,
				Placeholder: placeholder,
				MinValues:   &minOne,
				MaxValues:   maxValues,
				Options:     options,
			})

			c.mu.Lock()
			c.selects[customID] = selection{stepID: step.StepID, handler: onSelect}
			c.mu.Unlock()
		}
	}

	var refs []MessageRef
	for start := 0; start < len(menus); start += maxMenusPerMessage {
		end := min(start+maxMenusPerMessage, len(menus))
		rows := make([]discordgo.MessageComponent, 0, end-start)
		for _, menu := range menus[start:end] {
			rows = append(rows, discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{menu},
			})
		}

		content := prompt
		if start > 0 {
			content = fmt.Sprintf("%s (batch %d)", prompt, start/maxMenusPerMessage+1)
		}

		msg, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content:    content,
			Components: rows,
		})
		if err != nil {
			return refs, fmt.Errorf("present widgets: %w", err)
		}
		refs = append(refs, MessageRef{ChannelID: channelID, MessageID: msg.ID})

		c.mu.Lock()
		c.msgSelects[msg.ID] = append(c.msgSelects[msg.ID], customIDs...)
		c.mu.Unlock()
	}
	return refs, nil
}

// Ask sends the prompt and waits for the next message from the user in the
// channel. A timeout resolves to Answered=false, never an error.
func (c *DiscordClient) Ask(ctx context.Context, channelID, userID, prompt string, timeout time.Duration) (PromptResult, error) {
	msg, err := c.session.ChannelMessageSend(channelID, prompt)
	if err != nil {
		return PromptResult{}, fmt.Errorf("send prompt: %w", err)
	}
	result := PromptResult{Prompt: MessageRef{ChannelID: channelID, MessageID: msg.ID}}

	key := waiterKey(channelID, userID)
	reply := make(chan string, 1)
	c.mu.Lock()
	c.waiters[key] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.waiters[key] == reply {
			delete(c.waiters, key)
		}
		c.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case text := <-reply:
		result.Reply = text
		result.Answered = true
		return result, nil
	case <-timer.C:
		return result, nil
	case <-ctx.Done():
		return result, ctx.Err()
	}
}

func (c *DiscordClient) Send(ctx context.Context, channelID, text string) (MessageRef, error) {
	if channelID == "" {
		return MessageRef{}, fmt.Errorf("channelID is empty")
	}
	msg, err := c.session.ChannelMessageSend(channelID, text)
	if err != nil {
		return MessageRef{}, fmt.Errorf("failed to send message: %w", err)
	}
	return MessageRef{ChannelID: channelID, MessageID: msg.ID}, nil
}

func (c *DiscordClient) Delete(ctx context.Context, ref MessageRef) error {
	if err := c.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID); err != nil {
		return fmt.Errorf("delete message %s: %w", ref.MessageID, err)
	}

	// Drop the routing entries of any widgets the message carried.
	c.mu.Lock()
	for _, customID := range c.msgSelects[ref.MessageID] {
		delete(c.selects, customID)
	}
	delete(c.msgSelects, ref.MessageID)
	c.mu.Unlock()

	return nil
}

func (c *DiscordClient) Pin(ctx context.Context, ref MessageRef) error {
	if err := c.session.ChannelMessagePin(ref.ChannelID, ref.MessageID); err != nil {
		return fmt.Errorf("pin message %s: %w", ref.MessageID, err)
	}
	return nil
}

func (c *DiscordClient) Unpin(ctx context.Context, ref MessageRef) error {
	if err := c.session.ChannelMessageUnpin(ref.ChannelID, ref.MessageID); err != nil {
		return fmt.Errorf("unpin message %s: %w", ref.MessageID, err)
	}
	return nil
}

func (c *DiscordClient) ListPinned(ctx context.Context, channelID string) ([]MessageRef, error) {
	msgs, err := c.session.ChannelMessagesPinned(channelID)
	if err != nil {
		return nil, fmt.Errorf("list pinned messages: %w", err)
	}

	var me string
	if c.session.State != nil && c.session.State.User != nil {
		me = c.session.State.User.ID
	}

	var refs []MessageRef
	for _, msg := range msgs {
		if msg.Author == nil || msg.Author.ID != me {
			continue
		}
		refs = append(refs, MessageRef{ChannelID: channelID, MessageID: msg.ID})
	}
	return refs, nil
}

// SyncRole revokes the named role from every current holder, then grants it
// to exactly the given member IDs. Per-member failures are logged and
// skipped so one missing permission cannot wedge the whole resync.
func (c *DiscordClient) SyncRole(ctx context.Context, roleName string, memberIDs []string) error {
	if c.guildID == "" {
		return fmt.Errorf("no guild configured for role sync")
	}

	roles, err := c.session.GuildRoles(c.guildID)
	if err != nil {
		return fmt.Errorf("list guild roles: %w", err)
	}
	var roleID string
	for _, role := range roles {
		if role.Name == roleName {
			roleID = role.ID
			break
		}
	}
	if roleID == "" {
		return fmt.Errorf("role %q not found in guild", roleName)
	}

	want := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		if id != "" {
			want[id] = true
		}
	}

	after := ""
	for {
		members, err := c.session.GuildMembers(c.guildID, after, memberPageSize)
		if err != nil {
			return fmt.Errorf("list guild members: %w", err)
		}
		if len(members) == 0 {
			break
		}

		for _, member := range members {
			has := slices.Contains(member.Roles, roleID)
			switch {
			case has && !want[member.User.ID]:
				if err := c.session.GuildMemberRoleRemove(c.guildID, member.User.ID, roleID); err != nil {
					log.Warn().Err(err).Str("member", member.User.ID).Msgf("⚠️ Could not remove role %q", roleName)
				}
			case !has && want[member.User.ID]:
				if err := c.session.GuildMemberRoleAdd(c.guildID, member.User.ID, roleID); err != nil {
					log.Warn().Err(err).Str("member", member.User.ID).Msgf("⚠️ Could not assign role %q", roleName)
				}
			}
		}

		after = members[len(members)-1].User.ID
		if len(members) < memberPageSize {
			break
		}
	}
	return nil
}

func waiterKey(channelID, userID string) string {
	return channelID + "|" + userID
}

func chunkOptions[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		chunks = append(chunks, items[start:min(start+size, len(items))])
	}
	return chunks
}
