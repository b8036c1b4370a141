package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"caravan_server/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func newTestPublisher() *ChangePublisher {
	return &ChangePublisher{Hub: NewSubscriptionHub()}
}

func newTestGroupService(fake *fakeDynamo) *GroupService {
	return NewGroupService(fake, newTestPublisher(), 0)
}

// assertLeaderInvariant checks that an active group with members has exactly
// one leader and that the group's leaderId points at that member.
func assertLeaderInvariant(t *testing.T, svc *GroupService, groupID string) {
	t.Helper()
	ctx := context.Background()

	group, err := svc.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	members, err := svc.GetMembers(ctx, groupID)
	if err != nil {
		t.Fatalf("GetMembers failed: %v", err)
	}
	if !group.IsActive || len(members) == 0 {
		return
	}

	var leaders []string
	for _, m := range members {
		if m.Role == models.RoleLeader {
			leaders = append(leaders, m.UserID)
		}
	}
	if len(leaders) != 1 {
		t.Fatalf("expected exactly one leader, got %v", leaders)
	}
	if group.LeaderID != leaders[0] {
		t.Fatalf("leaderId %q does not match leader member %q", group.LeaderID, leaders[0])
	}
}

func TestCreateGroup(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if !group.IsActive {
		t.Error("new group should be active")
	}
	if group.InviteCode == "" {
		t.Error("new group should have an invite code")
	}

	members, err := svc.GetMembers(ctx, group.GroupID)
	if err != nil {
		t.Fatalf("GetMembers failed: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members))
	}
	if members[0].Role != models.RoleLeader {
		t.Errorf("creator should be leader, got role %q", members[0].Role)
	}
	assertLeaderInvariant(t, svc, group.GroupID)
}

func TestJoinGroup(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	member, err := svc.JoinGroup(ctx, group.InviteCode, "follower-1", "Finn")
	if err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	if member.Role != models.RoleFollower {
		t.Errorf("joiner should be follower, got %q", member.Role)
	}
	assertLeaderInvariant(t, svc, group.GroupID)
}

func TestJoinGroupInvalidCode(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())

	_, err := svc.JoinGroup(context.Background(), "NOPE99", "user-1", "Uma")
	if !errors.Is(err, models.ErrInvalidInviteCode) {
		t.Fatalf("expected ErrInvalidInviteCode, got %v", err)
	}
}

func TestJoinGroupExpiredInvite(t *testing.T) {
	fake := newFakeDynamo()
	svc := newTestGroupService(fake)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	// Force the invite past its deadline.
	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	_, err = fake.UpdateItem(ctx, models.GroupsTable, "SET inviteExpiresAt = :t",
		map[string]types.AttributeValue{"groupId": &types.AttributeValueMemberS{Value: group.GroupID}},
		map[string]types.AttributeValue{":t": &types.AttributeValueMemberS{Value: past}}, nil)
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	_, err = svc.JoinGroup(ctx, group.InviteCode, "follower-1", "Finn")
	if !errors.Is(err, models.ErrInviteExpired) {
		t.Fatalf("expected ErrInviteExpired, got %v", err)
	}

	members, _ := svc.GetMembers(ctx, group.GroupID)
	if len(members) != 1 {
		t.Fatalf("membership should be unchanged, got %d members", len(members))
	}
}

func TestJoinGroupAlreadyMember(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	if _, err := svc.JoinGroup(ctx, group.InviteCode, "follower-1", "Finn"); err != nil {
		t.Fatalf("first join failed: %v", err)
	}

	_, err := svc.JoinGroup(ctx, group.InviteCode, "follower-1", "Finn")
	if !errors.Is(err, models.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	members, _ := svc.GetMembers(ctx, group.GroupID)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
}

func TestLeaveGroupLastMember(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	if err := svc.LeaveGroup(ctx, group.GroupID, "leader-1"); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}

	got, err := svc.GetGroup(ctx, group.GroupID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got.IsActive {
		t.Error("group with no members should be deactivated")
	}
}

func TestLeaveGroupFollower(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	svc.JoinGroup(ctx, group.InviteCode, "follower-1", "Finn")

	if err := svc.LeaveGroup(ctx, group.GroupID, "follower-1"); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}

	got, _ := svc.GetGroup(ctx, group.GroupID)
	if got.LeaderID != "leader-1" {
		t.Errorf("leader should be unchanged, got %q", got.LeaderID)
	}
	assertLeaderInvariant(t, svc, group.GroupID)
}

func TestLeaveGroupLeaderElection(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	svc.JoinGroup(ctx, group.InviteCode, "zoe", "Zoe")
	svc.JoinGroup(ctx, group.InviteCode, "adam", "Adam")

	// Election is deterministic: earliest joinedAt wins, userId breaks
	// ties. GetMembers returns members in exactly that order, so the
	// expected successor is the first follower.
	before, err := svc.GetMembers(ctx, group.GroupID)
	if err != nil {
		t.Fatalf("GetMembers failed: %v", err)
	}
	var expected string
	for _, m := range before {
		if m.UserID != "leader-1" {
			expected = m.UserID
			break
		}
	}

	if err := svc.LeaveGroup(ctx, group.GroupID, "leader-1"); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}

	members, err := svc.GetMembers(ctx, group.GroupID)
	if err != nil {
		t.Fatalf("GetMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	assertLeaderInvariant(t, svc, group.GroupID)

	got, _ := svc.GetGroup(ctx, group.GroupID)
	if got.LeaderID != expected {
		t.Errorf("expected %q to be elected, got %q", expected, got.LeaderID)
	}
}

func TestLeaveGroupUnknownMember(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	err := svc.LeaveGroup(ctx, group.GroupID, "stranger")

	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestPromoteMember(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	svc.JoinGroup(ctx, group.InviteCode, "follower-1", "Finn")

	if err := svc.PromoteMember(ctx, group.GroupID, "follower-1"); err != nil {
		t.Fatalf("PromoteMember failed: %v", err)
	}

	got, _ := svc.GetGroup(ctx, group.GroupID)
	if got.LeaderID != "follower-1" {
		t.Errorf("expected follower-1 as leader, got %q", got.LeaderID)
	}
	assertLeaderInvariant(t, svc, group.GroupID)

	if err := svc.PromoteMember(ctx, group.GroupID, "follower-1"); err == nil {
		t.Error("promoting the current leader should fail")
	}
}

func TestRegenerateInviteCode(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	oldCode := group.InviteCode

	regenerated, err := svc.RegenerateInviteCode(ctx, group.GroupID)
	if err != nil {
		t.Fatalf("RegenerateInviteCode failed: %v", err)
	}
	if regenerated.InviteCode == oldCode {
		t.Fatal("regenerated code should differ from the old one")
	}

	// The old code no longer admits new members, the new one does.
	if _, err := svc.JoinGroup(ctx, oldCode, "follower-1", "Finn"); !errors.Is(err, models.ErrInvalidInviteCode) {
		t.Fatalf("expected ErrInvalidInviteCode for old code, got %v", err)
	}
	if _, err := svc.JoinGroup(ctx, regenerated.InviteCode, "follower-1", "Finn"); err != nil {
		t.Fatalf("join with new code failed: %v", err)
	}
}

func TestGetGroupPreservesLastGoodOnMalformedDocument(t *testing.T) {
	fake := newFakeDynamo()
	svc := newTestGroupService(fake)
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")

	// Blank out a required field in storage to simulate a malformed
	// document.
	_, err := fake.UpdateItem(ctx, models.GroupsTable, "SET #n = :empty",
		map[string]types.AttributeValue{"groupId": &types.AttributeValueMemberS{Value: group.GroupID}},
		map[string]types.AttributeValue{":empty": &types.AttributeValueMemberS{Value: ""}},
		map[string]string{"#n": "name"})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	got, err := svc.GetGroup(ctx, group.GroupID)
	if err != nil {
		t.Fatalf("GetGroup should fall back to the last good copy, got error: %v", err)
	}
	if got.Name != "Hiking Crew" {
		t.Errorf("expected cached name 'Hiking Crew', got %q", got.Name)
	}
}

func TestUpdateMemberStatus(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	if err := svc.UpdateMemberStatus(ctx, group.GroupID, "leader-1", models.StatusResting); err != nil {
		t.Fatalf("UpdateMemberStatus failed: %v", err)
	}

	member, _ := svc.GetMember(ctx, group.GroupID, "leader-1")
	if member.Status != models.StatusResting {
		t.Errorf("expected status resting, got %q", member.Status)
	}

	if err := svc.UpdateMemberStatus(ctx, group.GroupID, "leader-1", "napping"); err == nil {
		t.Error("invalid status should be rejected")
	}
}

func TestUpdateMemberLocationAndProfile(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	if err := svc.UpdateMemberLocation(ctx, group.GroupID, "leader-1", 37.5665, 126.9780); err != nil {
		t.Fatalf("UpdateMemberLocation failed: %v", err)
	}
	if err := svc.UpdateMemberProfile(ctx, group.GroupID, "leader-1", "Captain", "🧭"); err != nil {
		t.Fatalf("UpdateMemberProfile failed: %v", err)
	}

	member, _ := svc.GetMember(ctx, group.GroupID, "leader-1")
	if member.Latitude != 37.5665 || member.Longitude != 126.9780 {
		t.Errorf("location not stored, got %f,%f", member.Latitude, member.Longitude)
	}
	if member.LastLocationUpdate == "" {
		t.Error("lastLocationUpdate should be stamped")
	}
	if member.EffectiveName() != "Captain" {
		t.Errorf("nickname override not applied, got %q", member.EffectiveName())
	}
}

func TestUpdateGroupSettings(t *testing.T) {
	svc := newTestGroupService(newFakeDynamo())
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")
	if err := svc.UpdateGroupSettings(ctx, group.GroupID, true, "leader-1"); err != nil {
		t.Fatalf("UpdateGroupSettings failed: %v", err)
	}

	got, _ := svc.GetGroup(ctx, group.GroupID)
	if !got.Settings.FreeRoamMode {
		t.Error("freeRoamMode should be enabled")
	}
	if got.Settings.EnabledBy != "leader-1" || got.Settings.EnabledAt == "" {
		t.Errorf("settings should record who enabled and when, got %+v", got.Settings)
	}
}

func TestMembershipSnapshotDelivery(t *testing.T) {
	fake := newFakeDynamo()
	hub := NewSubscriptionHub()
	svc := NewGroupService(fake, &ChangePublisher{Hub: hub}, 0)
	ctx := context.Background()

	group, _ := svc.CreateGroup(ctx, "Hiking Crew", "leader-1", "Lena")

	sub := hub.Subscribe(GroupTopic(group.GroupID))
	defer sub.Close()

	if _, err := svc.JoinGroup(ctx, group.InviteCode, "follower-1", "Finn"); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}

	select {
	case update := <-sub.Updates():
		members, ok := update.Payload.([]models.Member)
		if !ok {
			t.Fatalf("expected full member snapshot, got %T", update.Payload)
		}
		if len(members) != 2 {
			t.Fatalf("snapshot should contain the complete set, got %d members", len(members))
		}
	case <-time.After(time.Second):
		t.Fatal("no membership snapshot delivered")
	}
}
