package moderation

import (
	"context"
	"strings"
	"testing"
)

func TestSensitiveTopicsTrigger(t *testing.T) {
	e := newTestEngine(newFakePlatform(), nil)

	res, err := e.checkSensitiveTopics(context.Background(),
		testMessage("m1", "user-1", "check out my new Crypto project"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Triggered {
		t.Fatal("crypto keyword must trigger")
	}
	if res.UserContent == nil || !res.UserContent.Captcha {
		t.Error("robot check must ask for a captcha")
	}
	if res.UserContent != nil && !strings.Contains(res.UserContent.Text, "user-1") {
		t.Error("prompt must mention the author")
	}
}

func TestSensitiveTopicsNoTrigger(t *testing.T) {
	e := newTestEngine(newFakePlatform(), nil)

	res, _ := e.checkSensitiveTopics(context.Background(),
		testMessage("m1", "user-1", "how do I write a goroutine"))
	if res.Triggered {
		t.Error("plain message must not trigger")
	}
}

func TestSupportRequestRedirect(t *testing.T) {
	e := newTestEngine(newFakePlatform(), nil)

	res, _ := e.checkSupportRequests(context.Background(),
		testMessage("m1", "user-1", "I got banned can a dev help me"))
	if !res.Triggered {
		t.Fatal("distress word plus request word must trigger")
	}
	if res.UserContent == nil || res.UserContent.Embed == nil {
		t.Fatal("redirect must carry an embed")
	}
	if res.UserContent.Embed.Title != "There is no account support here" {
		t.Errorf("unexpected embed title %q", res.UserContent.Embed.Title)
	}
}

func TestSupportRequestNeedsBothWordGroups(t *testing.T) {
	e := newTestEngine(newFakePlatform(), nil)

	res, _ := e.checkSupportRequests(context.Background(),
		testMessage("m1", "user-1", "my account got hacked yesterday"))
	if res.Triggered {
		t.Error("distress word alone must not trigger")
	}

	res, _ = e.checkSupportRequests(context.Background(),
		testMessage("m2", "user-1", "any dev around for a quick question"))
	if res.Triggered {
		t.Error("request word alone must not trigger")
	}
}

func TestSupportRequestExemptWord(t *testing.T) {
	e := newTestEngine(newFakePlatform(), nil)

	res, _ := e.checkSupportRequests(context.Background(),
		testMessage("m1", "user-1", "the lcu api banned my dev ticket on localhost"))
	if res.Triggered {
		t.Error("an exempt word must suppress the redirect")
	}
}
