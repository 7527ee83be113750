// Package ingest dispatches platform updates through the helpdesk pipeline.
package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/channel"
	"jan-server/services/helpdesk-api/internal/domain/command"
	"jan-server/services/helpdesk-api/internal/domain/commitment"
	"jan-server/services/helpdesk-api/internal/domain/content"
	"jan-server/services/helpdesk-api/internal/domain/identity"
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/reaction"
	"jan-server/services/helpdesk-api/internal/domain/ticket"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/utils/sanitize"
	"jan-server/services/helpdesk-api/internal/utils/stringutils"
)

// commitmentMinRunes: shorter texts are never scanned for commitments.
const commitmentMinRunes = 3

// Dependencies are the pipeline stages. Commands, Analyzer, Tasks and Sanitizer are
// optional.
type Dependencies struct {
	Roles       identity.RoleClassifier
	Resolver    *identity.Resolver
	Content     *content.Classifier
	Messages    *message.MessageService
	Store       message.Repository
	Tickets     *ticket.TicketService
	Commitments *commitment.CommitmentService
	Reactions   *reaction.ReactionService
	Commands    *command.Handler
	Analyzer    Analyzer
	Tasks       identity.TaskRunner
	Sanitizer   *sanitize.Sanitizer
}

// IngestService runs one update through normalization, identity resolution,
// classification, persistence and the side effects of a new message.
type IngestService struct {
	deps Dependencies
	log  zerolog.Logger
}

func NewIngestService(deps Dependencies, log zerolog.Logger) *IngestService {
	if deps.Sanitizer == nil {
		deps.Sanitizer = sanitize.NewSanitizer(sanitize.LevelHashed, "")
	}
	return &IngestService{
		deps: deps,
		log:  log.With().Str("component", "ingest").Logger(),
	}
}

// Handle processes one update. The error is non-nil only when the update failed as a
// whole; stage failures after the message was stored are reported as warnings.
func (s *IngestService) Handle(ctx context.Context, upd update.Update) (*Result, error) {
	kind := upd.Kind()
	switch kind {
	case update.KindReaction:
		return s.handleReaction(ctx, upd.MessageReaction)
	case update.KindMembership:
		return s.handleMembership(ctx, upd.MyChatMember)
	case update.KindMessage, update.KindEditedMessage, update.KindChannelPost, update.KindEditedChannelPost:
		return s.handleMessage(ctx, kind, upd.AnyMessage())
	default:
		return &Result{Status: StatusIgnored, Kind: kind, Reason: "unsupported update"}, nil
	}
}

func (s *IngestService) handleReaction(ctx context.Context, r *update.MessageReactionUpdated) (*Result, error) {
	res := &Result{Kind: update.KindReaction}
	applied, err := s.deps.Reactions.Apply(ctx, r)
	if err != nil {
		res.Status = StatusFailed
		return res, err
	}
	if !applied {
		res.Status, res.Reason = StatusIgnored, "unknown reaction target"
		return res, nil
	}
	res.Status = StatusReaction
	return res, nil
}

func (s *IngestService) handleMembership(ctx context.Context, m *update.ChatMemberUpdated) (*Result, error) {
	res := &Result{Kind: update.KindMembership}
	ch, err := s.deps.Resolver.SetMembership(ctx, m.Chat, m.BotPresent())
	if err != nil {
		res.Status = StatusFailed
		return res, err
	}
	if ch == nil {
		res.Status, res.Reason = StatusIgnored, "unknown chat"
		return res, nil
	}
	res.Status = StatusMembership
	res.ChannelID = ch.ID
	return res, nil
}

func (s *IngestService) handleMessage(ctx context.Context, kind update.Kind, msg *update.Message) (*Result, error) {
	res := &Result{Kind: kind}
	if msg == nil || msg.Chat == nil {
		res.Status, res.Reason = StatusIgnored, "missing chat"
		return res, nil
	}
	sender, ok := identity.SenderFromMessage(msg)
	if !ok {
		res.Status, res.Reason = StatusIgnored, "missing sender"
		return res, nil
	}

	ch, err := s.deps.Resolver.ResolveChannel(ctx, *msg.Chat, sender)
	if err != nil {
		res.Status = StatusFailed
		return res, err
	}
	res.ChannelID = ch.ID

	cls, err := s.deps.Roles.Classify(ctx, sender, *msg.Chat)
	if err != nil {
		res.Status = StatusFailed
		return res, err
	}
	user, err := s.deps.Resolver.ResolveSender(ctx, sender, ch.ID, cls)
	if err != nil {
		res.Status = StatusFailed
		return res, err
	}
	res.Role = user.Role

	if kind == update.KindMessage && s.deps.Commands != nil && s.deps.Commands.Recognizes(msg) {
		return s.handleCommand(ctx, res, ch, msg, user, sender)
	}

	body := s.deps.Content.Classify(ctx, msg)
	res.ContentType = body.Type

	stored, inserted, err := s.deps.Messages.Persist(ctx, message.PersistParams{
		Channel:           ch,
		ExternalID:        msg.MessageID,
		ThreadID:          threadOf(msg),
		Sender:            user,
		SenderName:        sender.Name,
		Role:              user.Role,
		Content:           body,
		ReplyToExternalID: replyTargetOf(msg),
		SentAt:            sentAtOf(msg),
	})
	if err != nil {
		res.Status = StatusFailed
		return res, err
	}
	if !inserted {
		res.Status = StatusDuplicate
		return res, nil
	}
	res.Status = StatusProcessed
	res.MessageID = stored.ID

	s.log.Debug().
		Uint("channel_id", ch.ID).
		Uint("message_id", stored.ID).
		Str("role", string(user.Role)).
		Str("content_type", string(body.Type)).
		Str("sender", s.deps.Sanitizer.Name(sender.Name)).
		Str("text", s.deps.Sanitizer.Text(body.Text)).
		Msg("message stored")

	s.afterInsert(ctx, res, ch, stored, user)
	return res, nil
}

// afterInsert runs the side effects of a newly stored message. None of them undo the
// insert.
func (s *IngestService) afterInsert(ctx context.Context, res *Result, ch *channel.Channel, stored *message.Message, user *participant.User) {
	agentID := user.ID

	if user.Role.IsStaff() && s.deps.Tickets != nil {
		transitions, err := s.deps.Tickets.OnTeamReply(ctx, ticket.TeamReply{
			ChannelID: ch.ID,
			MessageID: stored.ID,
			AgentID:   &agentID,
			AgentName: stored.SenderName,
			Text:      stored.Text,
		})
		res.Transitions = transitions
		if err != nil {
			s.log.Warn().Err(err).Uint("channel_id", ch.ID).Msg("case transitions failed")
			res.warn("case transitions failed")
		}
	}

	if s.deps.Commitments != nil && stringutils.RuneLen(stored.Text) > commitmentMinRunes {
		c, err := s.deps.Commitments.Capture(ctx, commitment.CaptureParams{
			ChannelID:  ch.ID,
			MessageID:  stored.ID,
			AgentID:    &agentID,
			AgentName:  stored.SenderName,
			SenderRole: stored.SenderRole,
			Text:       stored.Text,
		})
		if err != nil {
			s.log.Warn().Err(err).Uint("message_id", stored.ID).Msg("commitment capture failed")
			res.warn("commitment capture failed")
		} else if c != nil {
			res.CommitmentID = c.ID
		}
	}

	s.scheduleAnalysis(res, stored)
}

func (s *IngestService) scheduleAnalysis(res *Result, stored *message.Message) {
	if s.deps.Analyzer == nil || s.deps.Tasks == nil || stored.Text == "" {
		return
	}
	req := AnalysisRequest{
		MessageID:   stored.ID,
		ChannelID:   stored.ChannelID,
		Text:        stored.Text,
		ContentType: stored.ContentType,
		SenderRole:  stored.SenderRole,
	}
	submitted := s.deps.Tasks.Submit("message-analysis", func(ctx context.Context) error {
		analysis, err := s.deps.Analyzer.Analyze(ctx, req)
		if err != nil || analysis == nil || s.deps.Store == nil {
			return err
		}
		return s.deps.Store.SetAnalysis(ctx, req.MessageID, *analysis)
	})
	if !submitted {
		res.warn("analysis dropped")
	}
}

func (s *IngestService) handleCommand(ctx context.Context, res *Result, ch *channel.Channel, msg *update.Message, user *participant.User, sender identity.Sender) (*Result, error) {
	issuerID := user.ID
	outcome, err := s.deps.Commands.Handle(ctx, command.Request{
		Channel:    ch,
		Message:    msg,
		IssuerID:   &issuerID,
		IssuerName: sender.Name,
	})
	if err != nil {
		res.Status = StatusFailed
		return res, err
	}
	res.Status = StatusCommand
	res.Command = outcome
	if outcome.Case != nil && outcome.Case.SourceMessageID != nil {
		res.MessageID = *outcome.Case.SourceMessageID
	}
	return res, nil
}

func threadOf(msg *update.Message) *int64 {
	if msg.MessageThreadID == 0 {
		return nil
	}
	id := msg.MessageThreadID
	return &id
}

func replyTargetOf(msg *update.Message) *int64 {
	if msg.ReplyToMessage == nil {
		return nil
	}
	id := msg.ReplyToMessage.MessageID
	return &id
}

func sentAtOf(msg *update.Message) time.Time {
	if msg.Date <= 0 {
		return time.Time{}
	}
	return time.Unix(msg.Date, 0).UTC()
}
