package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"caravan_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DefaultInviteTTL is how long a freshly generated invite code stays valid.
const DefaultInviteTTL = 24 * time.Hour

// GroupService owns the Group/Member lifecycle: creation, invite-code joins,
// leaves with leader election, settings, and member profile/location/status
// updates. Every successful mutation republishes a full membership
// resnapshot through the change publisher.
type GroupService struct {
	Dynamo    DynamoAPI
	Publisher *ChangePublisher
	InviteTTL time.Duration

	// lastGood caches the most recent successfully decoded group document
	// per groupId, so a malformed store document degrades to stale data
	// instead of a nil group.
	mu       sync.Mutex
	lastGood map[string]models.Group
}

// NewGroupService builds a GroupService. A zero inviteTTL falls back to
// DefaultInviteTTL.
func NewGroupService(dynamo DynamoAPI, publisher *ChangePublisher, inviteTTL time.Duration) *GroupService {
	if inviteTTL <= 0 {
		inviteTTL = DefaultInviteTTL
	}
	return &GroupService{
		Dynamo:    dynamo,
		Publisher: publisher,
		InviteTTL: inviteTTL,
		lastGood:  make(map[string]models.Group),
	}
}

// inviteCodeCharset omits ambiguous characters (0/O, 1/I/L).
const inviteCodeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func generateInviteCode() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// fall back to a uuid-derived code rather than crash mid-request.
		return uuid.New().String()[:6]
	}
	for i, b := range buf {
		buf[i] = inviteCodeCharset[int(b)%len(inviteCodeCharset)]
	}
	return string(buf)
}

// CreateGroup produces a new active group with exactly one member, the
// leader.
func (s *GroupService) CreateGroup(ctx context.Context, name, leaderID, leaderName string) (*models.Group, error) {
	if name == "" || leaderID == "" {
		return nil, &models.ValidationError{Reason: "group name and leaderId are required"}
	}

	now := time.Now().UTC()
	group := models.Group{
		GroupID:         uuid.New().String(),
		Name:            name,
		LeaderID:        leaderID,
		CreatedAt:       now.Format(time.RFC3339),
		InviteCode:      generateInviteCode(),
		InviteExpiresAt: now.Add(s.InviteTTL).Format(time.RFC3339),
		IsActive:        true,
	}

	leader := models.Member{
		GroupID:     group.GroupID,
		UserID:      leaderID,
		DisplayName: leaderName,
		Role:        models.RoleLeader,
		Status:      models.StatusNormal,
		JoinedAt:    now.Format(time.RFC3339),
	}

	log.Printf("👥 Creating group '%s' led by %s", name, leaderID)
	if err := s.Dynamo.PutItem(ctx, models.GroupsTable, group); err != nil {
		return nil, &models.RemoteIOError{Op: "create group", Err: err}
	}
	if err := s.Dynamo.PutItem(ctx, models.MembersTable, leader); err != nil {
		return nil, &models.RemoteIOError{Op: "add leader member", Err: err}
	}

	s.mu.Lock()
	s.lastGood[group.GroupID] = group
	s.mu.Unlock()

	s.publishMembership(ctx, group.GroupID)
	log.Printf("✅ Group %s created with invite code %s", group.GroupID, group.InviteCode)
	return &group, nil
}

// findGroupByInviteCode resolves an invite code to an active group via the
// InviteCodeIndex GSI.
func (s *GroupService) findGroupByInviteCode(ctx context.Context, inviteCode string) (*models.Group, error) {
	keyCondition := "inviteCode = :inviteCode"
	expressionValues := map[string]types.AttributeValue{
		":inviteCode": &types.AttributeValueMemberS{Value: inviteCode},
	}

	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.GroupsTable, models.GroupInviteCodeIndex, keyCondition, expressionValues, nil, 5)
	if err != nil {
		return nil, &models.RemoteIOError{Op: "invite code lookup", Err: err}
	}

	var groups []models.Group
	if err := attributevalue.UnmarshalListOfMaps(items, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse groups: %w", err)
	}
	for i := range groups {
		if groups[i].IsActive {
			return &groups[i], nil
		}
	}
	return nil, nil
}

// JoinGroup validates an invite code and appends a follower member.
func (s *GroupService) JoinGroup(ctx context.Context, inviteCode, userID, userName string) (*models.Member, error) {
	group, err := s.findGroupByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, models.ErrInvalidInviteCode
	}
	if group.InviteExpired(time.Now().UTC()) {
		return nil, models.ErrInviteExpired
	}

	existing, err := s.GetMember(ctx, group.GroupID, userID)
	if err != nil {
		if _, ok := err.(*models.NotFoundError); !ok {
			return nil, err
		}
	}
	if existing != nil {
		return nil, models.ErrAlreadyMember
	}

	member := models.Member{
		GroupID:     group.GroupID,
		UserID:      userID,
		DisplayName: userName,
		Role:        models.RoleFollower,
		Status:      models.StatusNormal,
		JoinedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Dynamo.PutItem(ctx, models.MembersTable, member); err != nil {
		return nil, &models.RemoteIOError{Op: "join group", Err: err}
	}

	log.Printf("✅ %s joined group %s as follower", userID, group.GroupID)
	s.publishMembership(ctx, group.GroupID)
	return &member, nil
}

// GetGroup fetches and decodes a group document. On a malformed document it
// preserves the last good in-memory copy instead of surfacing nil.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
	}
	item, err := s.Dynamo.GetItem(ctx, models.GroupsTable, key)
	if err != nil {
		return nil, &models.RemoteIOError{Op: "fetch group", Err: err}
	}
	if item == nil {
		return nil, &models.NotFoundError{Resource: "group", ID: groupID}
	}

	var group models.Group
	decodeErr := attributevalue.UnmarshalMap(item, &group)
	if decodeErr == nil {
		decodeErr = group.Validate()
	}
	if decodeErr != nil {
		s.mu.Lock()
		cached, ok := s.lastGood[groupID]
		s.mu.Unlock()
		if ok {
			log.Printf("⚠️ Group %s document malformed (%v), serving last good copy", groupID, decodeErr)
			return &cached, nil
		}
		return nil, &models.ValidationError{Reason: fmt.Sprintf("malformed group document %s: %v", groupID, decodeErr)}
	}

	s.mu.Lock()
	s.lastGood[groupID] = group
	s.mu.Unlock()
	return &group, nil
}

// GetMember fetches one member record.
func (s *GroupService) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
		"userId":  &types.AttributeValueMemberS{Value: userID},
	}
	item, err := s.Dynamo.GetItem(ctx, models.MembersTable, key)
	if err != nil {
		return nil, &models.RemoteIOError{Op: "fetch member", Err: err}
	}
	if item == nil {
		return nil, &models.NotFoundError{Resource: "member", ID: userID}
	}

	var member models.Member
	if err := attributevalue.UnmarshalMap(item, &member); err != nil {
		return nil, fmt.Errorf("failed to parse member: %w", err)
	}
	return &member, nil
}

// GetMembers returns the full membership snapshot. Leader identity is
// re-derived from member roles; the group's leaderId pointer is only a
// fallback, because the leave sequence can leave it stale for a moment.
func (s *GroupService) GetMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	keyCondition := "groupId = :groupId"
	expressionValues := map[string]types.AttributeValue{
		":groupId": &types.AttributeValueMemberS{Value: groupID},
	}

	items, err := s.Dynamo.QueryItems(ctx, models.MembersTable, keyCondition, expressionValues, nil, 200)
	if err != nil {
		return nil, &models.RemoteIOError{Op: "fetch members", Err: err}
	}

	var members []models.Member
	if err := attributevalue.UnmarshalListOfMaps(items, &members); err != nil {
		return nil, &models.ValidationError{Reason: fmt.Sprintf("malformed member documents for group %s: %v", groupID, err)}
	}

	hasLeader := false
	for i := range members {
		if members[i].Role == models.RoleLeader {
			hasLeader = true
			break
		}
	}
	if !hasLeader && len(members) > 0 {
		// Transient inconsistency from a mid-flight leave: fall back to the
		// group's leaderId pointer for this snapshot.
		if group, err := s.GetGroup(ctx, groupID); err == nil {
			for i := range members {
				if members[i].UserID == group.LeaderID {
					members[i].Role = models.RoleLeader
					break
				}
			}
		}
	}

	sort.SliceStable(members, func(i, j int) bool {
		if members[i].JoinedAt != members[j].JoinedAt {
			return members[i].JoinedAt < members[j].JoinedAt
		}
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}

// LeaveGroup removes a member. Three outcomes: the empty group is
// deactivated, a follower leave changes nothing else, and a leader leave
// promotes exactly one remaining member. The steps are plain ordered remote
// writes; a crash between them leaves a stale leader pointer that heals on
// the next retried promotion, not in the background.
func (s *GroupService) LeaveGroup(ctx context.Context, groupID, userID string) error {
	leaving, err := s.GetMember(ctx, groupID, userID)
	if err != nil {
		return err
	}

	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
		"userId":  &types.AttributeValueMemberS{Value: userID},
	}
	if err := s.Dynamo.DeleteItem(ctx, models.MembersTable, key); err != nil {
		return &models.RemoteIOError{Op: "remove member", Err: err}
	}
	log.Printf("👋 %s left group %s", userID, groupID)

	remaining, err := s.GetMembers(ctx, groupID)
	if err != nil {
		return err
	}

	if len(remaining) == 0 {
		if err := s.deactivateGroup(ctx, groupID); err != nil {
			return err
		}
		log.Printf("🏁 Group %s is empty, deactivated", groupID)
		s.publishMembership(ctx, groupID)
		return nil
	}

	if leaving.Role == models.RoleLeader {
		// Deterministic election: earliest joinedAt wins, userId breaks
		// ties. GetMembers already returns that order.
		successor := remaining[0]
		if err := s.setMemberRole(ctx, groupID, successor.UserID, models.RoleLeader); err != nil {
			return err
		}
		if err := s.setLeaderPointer(ctx, groupID, successor.UserID); err != nil {
			return err
		}
		log.Printf("👑 %s promoted to leader of group %s", successor.UserID, groupID)
	}

	s.publishMembership(ctx, groupID)
	return nil
}

// PromoteMember transfers leadership to an existing member: demote the
// current leader, promote the target, update the pointer.
func (s *GroupService) PromoteMember(ctx context.Context, groupID, userID string) error {
	target, err := s.GetMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleLeader {
		return &models.ValidationError{Reason: "member is already the leader"}
	}

	members, err := s.GetMembers(ctx, groupID)
	if err != nil {
		return err
	}
	for i := range members {
		if members[i].Role == models.RoleLeader {
			if err := s.setMemberRole(ctx, groupID, members[i].UserID, models.RoleFollower); err != nil {
				return err
			}
		}
	}
	if err := s.setMemberRole(ctx, groupID, userID, models.RoleLeader); err != nil {
		return err
	}
	if err := s.setLeaderPointer(ctx, groupID, userID); err != nil {
		return err
	}

	log.Printf("👑 %s promoted to leader of group %s", userID, groupID)
	s.publishMembership(ctx, groupID)
	return nil
}

// RegenerateInviteCode issues a fresh invite code with a new expiry. The
// previous code stops working for new joins; existing members are
// unaffected.
func (s *GroupService) RegenerateInviteCode(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	group.InviteCode = generateInviteCode()
	group.InviteExpiresAt = now.Add(s.InviteTTL).Format(time.RFC3339)

	updateExpression := "SET inviteCode = :code, inviteExpiresAt = :expiresAt"
	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
	}
	expressionValues := map[string]types.AttributeValue{
		":code":      &types.AttributeValueMemberS{Value: group.InviteCode},
		":expiresAt": &types.AttributeValueMemberS{Value: group.InviteExpiresAt},
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.GroupsTable, updateExpression, key, expressionValues, nil); err != nil {
		return nil, &models.RemoteIOError{Op: "regenerate invite code", Err: err}
	}

	s.mu.Lock()
	s.lastGood[groupID] = *group
	s.mu.Unlock()

	log.Printf("🔑 Regenerated invite code for group %s", groupID)
	return group, nil
}

// UpdateGroupSettings toggles free-roam mode, recording who enabled it and
// when.
func (s *GroupService) UpdateGroupSettings(ctx context.Context, groupID string, freeRoam bool, enabledBy string) error {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}

	settings := models.GroupSettings{FreeRoamMode: freeRoam}
	if freeRoam {
		settings.EnabledBy = enabledBy
		settings.EnabledAt = time.Now().UTC().Format(time.RFC3339)
	}
	settingsValue, err := attributevalue.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	updateExpression := "SET settings = :settings"
	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
	}
	expressionValues := map[string]types.AttributeValue{
		":settings": settingsValue,
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.GroupsTable, updateExpression, key, expressionValues, nil); err != nil {
		return &models.RemoteIOError{Op: "update group settings", Err: err}
	}

	s.mu.Lock()
	if cached, ok := s.lastGood[groupID]; ok {
		cached.Settings = settings
		s.lastGood[groupID] = cached
	}
	s.mu.Unlock()

	log.Printf("⚙️ Group %s freeRoamMode=%v", groupID, freeRoam)
	s.publishMembership(ctx, groupID)
	return nil
}

// UpdateMemberLocation stamps a member's last known location.
func (s *GroupService) UpdateMemberLocation(ctx context.Context, groupID, userID string, lat, lng float64) error {
	updateExpression := "SET latitude = :lat, longitude = :lng, lastLocationUpdate = :ts"
	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
		"userId":  &types.AttributeValueMemberS{Value: userID},
	}
	expressionValues := map[string]types.AttributeValue{
		":lat": &types.AttributeValueMemberN{Value: fmt.Sprintf("%f", lat)},
		":lng": &types.AttributeValueMemberN{Value: fmt.Sprintf("%f", lng)},
		":ts":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.MembersTable, updateExpression, key, expressionValues, nil); err != nil {
		return &models.RemoteIOError{Op: "update member location", Err: err}
	}

	s.publishMembership(ctx, groupID)
	return nil
}

// UpdateMemberStatus sets a member's status flag.
func (s *GroupService) UpdateMemberStatus(ctx context.Context, groupID, userID, status string) error {
	if !models.ValidMemberStatus(status) {
		return &models.ValidationError{Reason: "invalid member status: " + status}
	}

	updateExpression := "SET #s = :status"
	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
		"userId":  &types.AttributeValueMemberS{Value: userID},
	}
	expressionValues := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: status},
	}
	expressionNames := map[string]string{
		"#s": "status",
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.MembersTable, updateExpression, key, expressionValues, expressionNames); err != nil {
		return &models.RemoteIOError{Op: "update member status", Err: err}
	}

	s.publishMembership(ctx, groupID)
	return nil
}

// UpdateMemberProfile sets the nickname and/or avatar emoji overrides.
func (s *GroupService) UpdateMemberProfile(ctx context.Context, groupID, userID, nickname, avatarEmoji string) error {
	if _, err := s.GetMember(ctx, groupID, userID); err != nil {
		return err
	}

	updateExpression := "SET nickname = :nickname, avatarEmoji = :avatar"
	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
		"userId":  &types.AttributeValueMemberS{Value: userID},
	}
	expressionValues := map[string]types.AttributeValue{
		":nickname": &types.AttributeValueMemberS{Value: nickname},
		":avatar":   &types.AttributeValueMemberS{Value: avatarEmoji},
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.MembersTable, updateExpression, key, expressionValues, nil); err != nil {
		return &models.RemoteIOError{Op: "update member profile", Err: err}
	}

	s.publishMembership(ctx, groupID)
	return nil
}

func (s *GroupService) setMemberRole(ctx context.Context, groupID, userID, role string) error {
	updateExpression := "SET #r = :role"
	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
		"userId":  &types.AttributeValueMemberS{Value: userID},
	}
	expressionValues := map[string]types.AttributeValue{
		":role": &types.AttributeValueMemberS{Value: role},
	}
	expressionNames := map[string]string{
		"#r": "role",
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.MembersTable, updateExpression, key, expressionValues, expressionNames); err != nil {
		return &models.RemoteIOError{Op: "set member role", Err: err}
	}
	return nil
}

func (s *GroupService) setLeaderPointer(ctx context.Context, groupID, userID string) error {
	updateExpression := "SET leaderId = :leaderId"
	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
	}
	expressionValues := map[string]types.AttributeValue{
		":leaderId": &types.AttributeValueMemberS{Value: userID},
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.GroupsTable, updateExpression, key, expressionValues, nil); err != nil {
		return &models.RemoteIOError{Op: "update leader pointer", Err: err}
	}

	s.mu.Lock()
	if cached, ok := s.lastGood[groupID]; ok {
		cached.LeaderID = userID
		s.lastGood[groupID] = cached
	}
	s.mu.Unlock()
	return nil
}

func (s *GroupService) deactivateGroup(ctx context.Context, groupID string) error {
	updateExpression := "SET isActive = :false"
	key := map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
	}
	expressionValues := map[string]types.AttributeValue{
		":false": &types.AttributeValueMemberBOOL{Value: false},
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.GroupsTable, updateExpression, key, expressionValues, nil); err != nil {
		return &models.RemoteIOError{Op: "deactivate group", Err: err}
	}

	s.mu.Lock()
	if cached, ok := s.lastGood[groupID]; ok {
		cached.IsActive = false
		s.lastGood[groupID] = cached
	}
	s.mu.Unlock()
	return nil
}

// publishMembership requeries the full membership and broadcasts it as a
// resnapshot. Subscribers always get the complete current set, never a diff.
func (s *GroupService) publishMembership(ctx context.Context, groupID string) {
	members, err := s.GetMembers(ctx, groupID)
	if err != nil {
		log.Printf("⚠️ Could not build membership snapshot for group %s: %v", groupID, err)
		return
	}
	s.Publisher.PublishGroup(groupID, "membersSnapshot", members)
}
