package identity

import (
	"context"

	"jan-server/services/helpdesk-api/internal/domain/participant"
	"jan-server/services/helpdesk-api/internal/domain/update"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// Method records how a role was decided.
type Method string

const (
	MethodIDMatch       Method = "id_match"
	MethodUsernameMatch Method = "username_match"
	MethodConfigMatch   Method = "config_match"
	MethodHeuristic     Method = "heuristic"
)

// Classification is the outcome of role classification. Matched is the stored user the
// decision was based on, if any.
type Classification struct {
	Role    participant.Role
	Method  Method
	Matched *participant.User
}

// RoleClassifier decides the role of a message sender.
type RoleClassifier interface {
	Classify(ctx context.Context, sender Sender, chat update.Chat) (Classification, error)
}

// Directory lists the configured staff and partner accounts.
type Directory struct {
	StaffIDs         []int64
	StaffUsernames   []string
	PartnerUsernames []string
}

// DirectoryClassifier consults stored users first, then the configured directory, and
// falls back to the chat kind.
type DirectoryClassifier struct {
	users            participant.Repository
	staffIDs         map[int64]struct{}
	staffUsernames   map[string]struct{}
	partnerUsernames map[string]struct{}
}

func NewDirectoryClassifier(users participant.Repository, dir Directory) *DirectoryClassifier {
	c := &DirectoryClassifier{
		users:            users,
		staffIDs:         make(map[int64]struct{}, len(dir.StaffIDs)),
		staffUsernames:   usernameSet(dir.StaffUsernames),
		partnerUsernames: usernameSet(dir.PartnerUsernames),
	}
	for _, id := range dir.StaffIDs {
		c.staffIDs[id] = struct{}{}
	}
	return c
}

func (c *DirectoryClassifier) Classify(ctx context.Context, sender Sender, chat update.Chat) (Classification, error) {
	if sender.ExternalID != nil {
		u, err := c.users.FindByExternalID(ctx, *sender.ExternalID)
		if err != nil {
			return Classification{}, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up sender by id")
		}
		if u != nil {
			return Classification{Role: u.Role, Method: MethodIDMatch, Matched: u}, nil
		}
	}

	username := participant.NormalizeUsername(sender.Username)
	if username != "" {
		u, err := c.users.FindUnboundByUsername(ctx, username)
		if err != nil {
			return Classification{}, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to look up sender by username")
		}
		if u != nil {
			return Classification{Role: u.Role, Method: MethodUsernameMatch, Matched: u}, nil
		}
	}

	if sender.ExternalID != nil {
		if _, ok := c.staffIDs[*sender.ExternalID]; ok {
			return Classification{Role: participant.RoleEmployee, Method: MethodConfigMatch}, nil
		}
	}
	if username != "" {
		if _, ok := c.staffUsernames[username]; ok {
			return Classification{Role: participant.RoleEmployee, Method: MethodConfigMatch}, nil
		}
		if _, ok := c.partnerUsernames[username]; ok {
			return Classification{Role: participant.RolePartner, Method: MethodConfigMatch}, nil
		}
	}

	return Classification{Role: heuristicRole(chat), Method: MethodHeuristic}, nil
}

// heuristicRole: whoever writes to the bot privately is a client; unknown members of
// group chats and channels are partners.
func heuristicRole(chat update.Chat) participant.Role {
	if chat.IsPrivate() {
		return participant.RoleClient
	}
	return participant.RolePartner
}

func usernameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = participant.NormalizeUsername(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
