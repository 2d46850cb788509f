package services

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trueai/go-detect-backend/internal/domain"
	"github.com/trueai/go-detect-backend/internal/repo"
)

func mediaChat(email, identity string, urls ...string) *domain.Chat {
	c := &domain.Chat{
		ID:           primitive.NewObjectID(),
		UserIdentity: identity,
		UserEmail:    email,
		Title:        "t",
	}
	for _, u := range urls {
		user, assistant := domain.NewMessagePair(domain.MediaImage, u, domain.Verdict{Label: domain.LabelAI})
		c.Messages = append(c.Messages, user, assistant)
	}
	return c
}

func TestGetMapsNotFound(t *testing.T) {
	svc := NewChatService(&fakeChatRepo{getErr: repo.ErrNotFound}, &fakeObjectStore{})
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("err = %v, want ErrChatNotFound", err)
	}
}

func TestDeleteCleansMediaThenRemovesChat(t *testing.T) {
	chat := mediaChat("a@b.co", "user_1",
		"https://res.cloudinary.com/demo/image/upload/v1/TrueAI/images/one.png",
		"https://res.cloudinary.com/demo/image/upload/v1/TrueAI/images/two.png",
	)
	r := &fakeChatRepo{getChat: chat, deleteCount: 1}
	store := &fakeObjectStore{}
	svc := NewChatService(r, store)

	res, err := svc.Delete(context.Background(), "a@b.co", chat.ID.Hex())
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.DeletedChats != 1 {
		t.Errorf("deleted = %d, want 1", res.DeletedChats)
	}
	// One destroy per user message; assistant duplicates are skipped.
	if len(store.destroyCalls) != 2 {
		t.Fatalf("destroy calls = %d, want 2: %v", len(store.destroyCalls), store.destroyCalls)
	}
	if store.destroyCalls[0].publicID != "TrueAI/images/one" || store.destroyCalls[0].resourceType != "image" {
		t.Errorf("first destroy = %+v", store.destroyCalls[0])
	}
	if r.deleteChatID != chat.ID.Hex() || r.deleteEmail != "a@b.co" {
		t.Errorf("repo delete args = %q/%q", r.deleteChatID, r.deleteEmail)
	}
}

func TestDeleteMissingChatIsSoftNoop(t *testing.T) {
	store := &fakeObjectStore{}
	svc := NewChatService(&fakeChatRepo{getErr: repo.ErrNotFound}, store)

	res, err := svc.Delete(context.Background(), "a@b.co", "000000000000000000000000")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.DeletedChats != 0 || len(res.Cleanup) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
	if len(store.destroyCalls) != 0 {
		t.Errorf("unexpected destroy calls: %v", store.destroyCalls)
	}
}

func TestDeleteForeignChatLeavesEverythingIntact(t *testing.T) {
	chat := mediaChat("owner@b.co", "user_1",
		"https://res.cloudinary.com/demo/image/upload/v1/TrueAI/images/one.png")
	r := &fakeChatRepo{getChat: chat}
	store := &fakeObjectStore{}
	svc := NewChatService(r, store)

	res, err := svc.Delete(context.Background(), "intruder@b.co", chat.ID.Hex())
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.DeletedChats != 0 {
		t.Errorf("deleted = %d, want 0", res.DeletedChats)
	}
	// The ownership check runs before any media is touched.
	if len(store.destroyCalls) != 0 {
		t.Errorf("foreign delete must not touch media: %v", store.destroyCalls)
	}
	if r.deleteChatID != "" {
		t.Error("repo delete must not run for a foreign chat")
	}
}

func TestDeleteContinuesCascadePastDestroyFailures(t *testing.T) {
	chat := mediaChat("a@b.co", "user_1",
		"https://res.cloudinary.com/demo/image/upload/v1/TrueAI/images/bad.png",
		"https://res.cloudinary.com/demo/image/upload/v1/TrueAI/images/good.png",
	)
	r := &fakeChatRepo{getChat: chat, deleteCount: 1}
	store := &fakeObjectStore{destroyErrOn: map[string]error{
		"TrueAI/images/bad": errors.New("provider error"),
	}}
	svc := NewChatService(r, store)

	res, err := svc.Delete(context.Background(), "a@b.co", chat.ID.Hex())
	if err != nil {
		t.Fatalf("destroy failure must not fail the cascade: %v", err)
	}
	if res.DeletedChats != 1 {
		t.Errorf("deleted = %d, want 1", res.DeletedChats)
	}
	if len(store.destroyCalls) != 2 {
		t.Fatalf("destroy calls = %d, want 2", len(store.destroyCalls))
	}
	var failed, succeeded int
	for _, c := range res.Cleanup {
		if c.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	if failed != 1 || succeeded != 1 {
		t.Errorf("cleanup outcomes = %+v", res.Cleanup)
	}
}

func TestDeleteSkipsNonCanonicalURLs(t *testing.T) {
	chat := mediaChat("a@b.co", "user_1", "https://example.com/not-cloudinary.png")
	r := &fakeChatRepo{getChat: chat, deleteCount: 1}
	store := &fakeObjectStore{}
	svc := NewChatService(r, store)

	res, err := svc.Delete(context.Background(), "a@b.co", chat.ID.Hex())
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.destroyCalls) != 0 {
		t.Errorf("non-canonical URL must be skipped: %v", store.destroyCalls)
	}
	if res.DeletedChats != 1 {
		t.Errorf("deleted = %d, want 1", res.DeletedChats)
	}
}

func TestDeleteAllCascadesEveryChat(t *testing.T) {
	c1 := mediaChat("a@b.co", "user_1", "https://res.cloudinary.com/d/image/upload/v1/TrueAI/images/a.png")
	c2 := mediaChat("a@b.co", "user_1", "https://res.cloudinary.com/d/image/upload/v1/TrueAI/images/b.png")
	r := &fakeChatRepo{listByEmailChats: []domain.Chat{*c1, *c2}, deleteAllCount: 2}
	store := &fakeObjectStore{}
	svc := NewChatService(r, store)

	res, err := svc.DeleteAll(context.Background(), "a@b.co")
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if res.DeletedChats != 2 {
		t.Errorf("deleted = %d, want 2", res.DeletedChats)
	}
	if len(store.destroyCalls) != 2 {
		t.Errorf("destroy calls = %d, want 2", len(store.destroyCalls))
	}
	if r.deleteAllEmail != "a@b.co" {
		t.Errorf("delete-all email = %q", r.deleteAllEmail)
	}
}

func TestDeleteAllForIdentityUsesIdentityKey(t *testing.T) {
	c1 := mediaChat("a@b.co", "user_9", "https://res.cloudinary.com/d/image/upload/v1/TrueAI/images/a.png")
	r := &fakeChatRepo{listByIdentityChats: []domain.Chat{*c1}, deleteAllCount: 1}
	store := &fakeObjectStore{}
	svc := NewChatService(r, store)

	res, err := svc.DeleteAllForIdentity(context.Background(), "user_9")
	if err != nil {
		t.Fatalf("DeleteAllForIdentity: %v", err)
	}
	if res.DeletedChats != 1 {
		t.Errorf("deleted = %d, want 1", res.DeletedChats)
	}
	if r.deleteAllIdentity != "user_9" {
		t.Errorf("identity = %q", r.deleteAllIdentity)
	}
	if len(store.destroyCalls) != 1 {
		t.Errorf("destroy calls = %v", store.destroyCalls)
	}
}
