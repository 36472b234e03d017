package moderation

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	invitePattern     = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:discord(?:app)?\.com/invite|discord\.gg)/([a-z0-9-]+)`)
	cdnLinkPattern    = regexp.MustCompile(`(?i)https://cdn\.discordapp\.com/\S+`)
	markdownLinkParts = regexp.MustCompile(`(\[.*?\])(\(<?https://.*?\)>?)`)
)

// kickMarkerToken in a blocked-URL message upgrades the action straight to a
// kick; it only ever appears in one known spam template.
const kickMarkerToken = "(HOW)"

// checkInviteLinks resolves invite codes in the message and kicks authors
// advertising servers whose names carry blocklisted terms. Resolution
// failures are logged per invite and never fail the rule.
func (e *Engine) checkInviteLinks(ctx context.Context, msg *Message) (Result, error) {
	matches := invitePattern.FindAllStringSubmatch(msg.Content, -1)
	for _, match := range matches {
		code := match[1]
		name, err := e.resolveInviteName(ctx, code)
		if err != nil {
			e.logger.Warn("failed to resolve invite",
				zap.String("code", code), zap.Error(err))
			continue
		}
		nameWords := strings.Fields(strings.ToLower(name))
		for _, bad := range e.wordlists.InviteNameBlocklist {
			for _, w := range nameWords {
				if w == bad {
					return Result{
						Triggered:   true,
						AuditReason: "spamming abusive invite links",
					}, nil
				}
			}
		}
	}
	return Result{}, nil
}

// resolveInviteName maps an invite code to its guild name, going through the
// lookup cache so repeated spam of the same invite hits the platform once.
func (e *Engine) resolveInviteName(ctx context.Context, code string) (string, error) {
	fetch := func() (interface{}, error) {
		return e.platform.ResolveInvite(ctx, code)
	}
	if e.lookup == nil {
		name, err := fetch()
		if err != nil {
			return "", err
		}
		return name.(string), nil
	}
	val, err := e.lookup.Get(ctx, "invite:"+code, fetch)
	if err != nil {
		return "", err
	}
	name, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("unexpected cached invite value %T", val)
	}
	return name, nil
}

// checkLinks is the link gate. Allow-listed hostnames pass; block-listed
// hostnames are reported and escalate to WarnCustom (or Kick when the
// message carries the known marker token); a burst of CDN links matches a
// known spam template; anything else is held behind the robot check.
func (e *Engine) checkLinks(_ context.Context, msg *Message) (Result, error) {
	hostname, rawURL, ok := firstLinkHostname(msg.Content)
	if !ok {
		return Result{}, nil
	}

	if hostnameAllowed(hostname, e.settings.AllowedURLs) {
		return Result{}, nil
	}

	for _, blocked := range e.settings.BlockedURLs {
		if hostname != blocked {
			continue
		}
		// Blocked URLs act even on trusted users, but never on admins.
		if hasAnyID(msg.AuthorRoles, e.settings.AdminRoles) {
			return Result{}, nil
		}
		res := Result{
			Triggered:   true,
			HasOverride: true,
			Override:    ActionWarnCustom,
			AuditReason: "posted blocked url " + hostname,
			AdminContent: &Content{
				Text: fmt.Sprintf("SpamKiller: %s (%s) posted blocked url %s",
					msg.AuthorUsername, msg.AuthorID, rawURL),
			},
		}
		if strings.Contains(msg.Content, kickMarkerToken) {
			res.Override = ActionKick
		}
		return res, nil
	}

	if len(cdnLinkPattern.FindAllString(msg.Content, -1)) >= 3 {
		return Result{
			Triggered:   true,
			HasOverride: true,
			Override:    ActionWarnCustom,
			AuditReason: "known CDN spam template",
			UserContent: &Content{
				Text: "Hey <@" + msg.AuthorID + ">, your message matches a known spam pattern and was disallowed.",
				Embed: &Embed{
					Title:       "Message Removed",
					Color:       0xffcc00,
					Description: "Your message matches a known spam pattern and was disallowed.",
				},
			},
		}, nil
	}

	return Result{
		Triggered:   true,
		AuditReason: "unverified link",
		UserContent: robotCheckContent(msg.AuthorID,
			"We require users to verify that they are human before they are allowed to post a link."),
	}, nil
}

// checkMisleadingLinks reports markdown links whose visible label itself
// looks like a hostname (contains a real TLD suffix) pointing somewhere else
// entirely. Report only; the message stays up.
func (e *Engine) checkMisleadingLinks(_ context.Context, msg *Message) (Result, error) {
	tlds := e.tldSuffixes()
	if len(tlds) == 0 {
		return Result{}, nil
	}

	var misleading []string
	for _, link := range markdownLinkParts.FindAllString(msg.Content, -1) {
		end := strings.Index(link, "]")
		if end <= 1 {
			continue
		}
		label := link[1:end]
		for _, tld := range tlds {
			if strings.Contains(label, tld) {
				misleading = append(misleading, fmt.Sprintf("```%s``` != %s", link, label))
				break
			}
		}
	}
	if len(misleading) == 0 {
		return Result{}, nil
	}

	report := fmt.Sprintf(
		"SpamKiller: Message with potentially misleading links posted by <@%s> in <#%s> (%s)\n%s",
		msg.AuthorID, msg.ChannelID, messageLink(msg.Ref()), strings.Join(misleading, "\n"))

	return Result{
		Triggered:    true,
		AuditReason:  "misleading markdown links",
		AdminContent: &Content{Text: report},
	}, nil
}

// firstLinkHostname extracts the hostname of the first http(s) URL in the
// text, if any.
func firstLinkHostname(content string) (hostname, raw string, ok bool) {
	offset := strings.Index(content, "http://")
	if offset < 0 {
		offset = strings.Index(content, "https://")
	}
	if offset < 0 {
		return "", "", false
	}

	raw = content[offset:]
	if cut := strings.IndexAny(raw, " \t\n"); cut >= 0 {
		raw = raw[:cut]
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return "", "", false
	}
	return parsed.Hostname(), raw, true
}

// hostnameAllowed matches the exact domain or any subdomain of an
// allow-list entry, never a lookalike suffix ("notexample.com" does not
// match "example.com").
func hostnameAllowed(hostname string, allowed []string) bool {
	for _, domain := range allowed {
		if !strings.HasSuffix(hostname, domain) {
			continue
		}
		rest := strings.TrimSuffix(hostname, domain)
		if rest == "" || strings.HasSuffix(rest, ".") {
			return true
		}
	}
	return false
}

func hasAnyID(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func messageLink(ref MessageRef) string {
	return fmt.Sprintf("https://discordapp.com/channels/%s/%s/%s",
		ref.GuildID, ref.ChannelID, ref.MessageID)
}
