package bot

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func TestAuthorCanPost(t *testing.T) {
	cases := []struct {
		name  string
		perms int64
		err   error
		want  bool
	}{
		{"send bit set", discordgo.PermissionSendMessages | discordgo.PermissionViewChannel, nil, true},
		{"send bit missing", discordgo.PermissionViewChannel, nil, false},
		{"no permissions at all", 0, nil, false},
		{"lookup failure lets the message through", 0, errors.New("channel not found"), true},
	}

	for _, tc := range cases {
		b := &Bot{
			Logger: zap.NewNop(),
			channelPerms: func(userID, channelID string) (int64, error) {
				return tc.perms, tc.err
			},
		}
		if got := b.authorCanPost("user-1", "channel-1"); got != tc.want {
			t.Errorf("%s: authorCanPost = %v, want %v", tc.name, got, tc.want)
		}
	}
}
