// Package repotest provides an in-memory implementation of the repository
// interfaces for service and handler tests.
package repotest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"wishlist/internal/model"
	"wishlist/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInjected is returned by operations configured to fail
var ErrInjected = errors.New("repotest: injected failure")

// ErrInvalidUUID is what lookups on uuid columns return for a malformed id,
// as Postgres does with SQLSTATE 22P02
var ErrInvalidUUID = errors.New("repotest: invalid input syntax for type uuid")

func checkUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidUUID
	}
	return nil
}

// Store holds all tables in memory. Its repositories share one lock, and
// WithinTransaction restores a snapshot when fn fails.
type Store struct {
	mu sync.Mutex
	tx sync.Mutex

	users         map[string]*model.User
	friendships   map[string]*model.Friendship
	notifications map[string]*model.Notification
	lists         map[string]*model.List
	wishes        map[string]*model.Wish

	// Fail maps an operation name such as "notifications.Create" to the
	// error it returns
	Fail map[string]error

	// BeforeFriendshipCreate runs before a friendship insert is applied
	BeforeFriendshipCreate func(f *model.Friendship)

	Transactions int
	clock        time.Time

	// rows added with AddFriendship while a transaction is open behave as
	// if another connection committed them, so a rollback keeps them
	inTx    bool
	outside []model.Friendship
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]*model.User),
		friendships:   make(map[string]*model.Friendship),
		notifications: make(map[string]*model.Notification),
		lists:         make(map[string]*model.List),
		wishes:        make(map[string]*model.Wish),
		Fail:          make(map[string]error),
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// now returns strictly increasing timestamps so ordering is deterministic
func (s *Store) now() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) fail(op string) error {
	return s.Fail[op]
}

func (s *Store) Users() repository.UserRepository                 { return &userRepo{s} }
func (s *Store) Friendships() repository.FriendshipRepository     { return &friendshipRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return &notificationRepo{s} }
func (s *Store) Lists() repository.ListRepository                 { return &listRepo{s} }
func (s *Store) Wishes() repository.WishRepository                { return &wishRepo{s} }

// AddUser inserts a user directly and returns it
func (s *Store) AddUser(name, email string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{ID: uuid.New().String(), Name: name, Email: model.NormalizeEmail(email)}
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	cp := *u
	return &cp
}

// AddFriendship inserts a ledger row directly and returns it
func (s *Store) AddFriendship(senderID, receiverID string, status model.FriendshipStatus) *model.Friendship {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &model.Friendship{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		PairKey:    model.PairKey(senderID, receiverID),
		Status:     status,
	}
	f.CreatedAt = s.now()
	f.UpdatedAt = f.CreatedAt
	s.friendships[f.ID] = f
	if s.inTx {
		s.outside = append(s.outside, *f)
	}
	cp := *f
	return &cp
}

// FriendshipRows returns a copy of every ledger row
func (s *Store) FriendshipRows() []model.Friendship {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]model.Friendship, 0, len(s.friendships))
	for _, f := range s.friendships {
		rows = append(rows, *f)
	}
	return rows
}

// NotificationRows returns a copy of every notification, oldest first
func (s *Store) NotificationRows() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]model.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		rows = append(rows, *n)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	return rows
}

type snapshot struct {
	friendships   map[string]model.Friendship
	notifications map[string]model.Notification
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		friendships:   make(map[string]model.Friendship, len(s.friendships)),
		notifications: make(map[string]model.Notification, len(s.notifications)),
	}
	for id, f := range s.friendships {
		snap.friendships[id] = *f
	}
	for id, n := range s.notifications {
		snap.notifications[id] = *n
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friendships = make(map[string]*model.Friendship, len(snap.friendships))
	for id, f := range snap.friendships {
		f := f
		s.friendships[id] = &f
	}
	s.notifications = make(map[string]*model.Notification, len(snap.notifications))
	for id, n := range snap.notifications {
		n := n
		s.notifications[id] = &n
	}
	for _, f := range s.outside {
		f := f
		s.friendships[f.ID] = &f
	}
}

// WithinTransaction serializes transactions, which stands in for row locks
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repository.TxRepositories) error) error {
	s.tx.Lock()
	defer s.tx.Unlock()

	s.mu.Lock()
	s.Transactions++
	s.inTx = true
	s.outside = nil
	s.mu.Unlock()

	snap := s.snapshot()
	err := fn(repository.TxRepositories{
		Friendships:   s.Friendships(),
		Notifications: s.Notifications(),
	})
	if err != nil {
		s.restore(snap)
	}

	s.mu.Lock()
	s.inTx = false
	s.outside = nil
	s.mu.Unlock()
	return err
}

// users

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Create"); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = model.NormalizeEmail(user.Email)
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.FindByID"); err != nil {
		return nil, err
	}
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *userRepo) FindByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := []*model.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			cp := *u
			users = append(users, &cp)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (r *userRepo) Search(ctx context.Context, keyword, excludeID string, limit int) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Search"); err != nil {
		return nil, err
	}
	keyword = strings.ToLower(keyword)
	users := []*model.User{}
	for _, u := range r.s.users {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Name), keyword) || strings.Contains(u.Email, keyword) {
			cp := *u
			users = append(users, &cp)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Update"); err != nil {
		return err
	}
	user.Email = model.NormalizeEmail(user.Email)
	for _, u := range r.s.users {
		if u.ID != user.ID && u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.UpdatedAt = r.s.now()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

// friendships

type friendshipRepo struct{ s *Store }

func (r *friendshipRepo) withUsers(f *model.Friendship) *model.Friendship {
	cp := *f
	if u, ok := r.s.users[f.SenderID]; ok {
		uc := *u
		cp.Sender = &uc
	}
	if u, ok := r.s.users[f.ReceiverID]; ok {
		uc := *u
		cp.Receiver = &uc
	}
	return &cp
}

func (r *friendshipRepo) Create(ctx context.Context, friendship *model.Friendship) error {
	if hook := r.s.BeforeFriendshipCreate; hook != nil {
		hook(friendship)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("friendships.Create"); err != nil {
		return err
	}
	if friendship.ID == "" {
		friendship.ID = uuid.New().String()
	}
	friendship.PairKey = model.PairKey(friendship.SenderID, friendship.ReceiverID)
	for _, f := range r.s.friendships {
		if f.PairKey == friendship.PairKey {
			return gorm.ErrDuplicatedKey
		}
	}
	if friendship.Status == "" {
		friendship.Status = model.FriendshipStatusPending
	}
	friendship.CreatedAt = r.s.now()
	friendship.UpdatedAt = friendship.CreatedAt
	cp := *friendship
	r.s.friendships[friendship.ID] = &cp
	return nil
}

func (r *friendshipRepo) FindByID(ctx context.Context, id string) (*model.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("friendships.FindByID"); err != nil {
		return nil, err
	}
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	f, ok := r.s.friendships[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *friendshipRepo) FindBetween(ctx context.Context, userA, userB string) (*model.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := model.PairKey(userA, userB)
	for _, f := range r.s.friendships {
		if f.PairKey == key {
			cp := *f
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *friendshipRepo) FindBetweenForUpdate(ctx context.Context, userA, userB string) (*model.Friendship, error) {
	if err := r.s.fail("friendships.FindBetweenForUpdate"); err != nil {
		return nil, err
	}
	return r.FindBetween(ctx, userA, userB)
}

func (r *friendshipRepo) FindByPairKeys(ctx context.Context, pairKeys []string) ([]*model.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("friendships.FindByPairKeys"); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(pairKeys))
	for _, k := range pairKeys {
		wanted[k] = true
	}
	result := []*model.Friendship{}
	for _, f := range r.s.friendships {
		if wanted[f.PairKey] {
			cp := *f
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *friendshipRepo) FindAcceptedByUserID(ctx context.Context, userID string) ([]*model.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []*model.Friendship{}
	for _, f := range r.s.friendships {
		if f.Status == model.FriendshipStatusAccepted && f.Involves(userID) {
			result = append(result, r.withUsers(f))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return result, nil
}

func (r *friendshipRepo) FindPendingByReceiverID(ctx context.Context, receiverID string) ([]*model.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []*model.Friendship{}
	for _, f := range r.s.friendships {
		if f.Status == model.FriendshipStatusPending && f.ReceiverID == receiverID {
			result = append(result, r.withUsers(f))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return result, nil
}

func (r *friendshipRepo) Revive(ctx context.Context, id, senderID, receiverID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("friendships.Revive"); err != nil {
		return false, err
	}
	f, ok := r.s.friendships[id]
	if !ok || f.Status != model.FriendshipStatusRejected {
		return false, nil
	}
	f.Status = model.FriendshipStatusPending
	f.SenderID = senderID
	f.ReceiverID = receiverID
	f.UpdatedAt = r.s.now()
	return true, nil
}

func (r *friendshipRepo) Transition(ctx context.Context, id, receiverID string, from, to model.FriendshipStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("friendships.Transition"); err != nil {
		return false, err
	}
	f, ok := r.s.friendships[id]
	if !ok || f.ReceiverID != receiverID || f.Status != from {
		return false, nil
	}
	f.Status = to
	f.UpdatedAt = r.s.now()
	return true, nil
}

func (r *friendshipRepo) DeleteAcceptedBetween(ctx context.Context, userA, userB string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("friendships.DeleteAcceptedBetween"); err != nil {
		return 0, err
	}
	key := model.PairKey(userA, userB)
	var n int64
	for id, f := range r.s.friendships {
		if f.PairKey == key && f.Status == model.FriendshipStatusAccepted {
			delete(r.s.friendships, id)
			n++
		}
	}
	return n, nil
}

// notifications

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(ctx context.Context, notification *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.Create"); err != nil {
		return err
	}
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	notification.CreatedAt = r.s.now()
	cp := *notification
	cp.Notifier = nil
	r.s.notifications[notification.ID] = &cp
	return nil
}

func (r *notificationRepo) FindByNotifiedID(ctx context.Context, userID string, limit, offset int) ([]*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.FindByNotifiedID"); err != nil {
		return nil, err
	}
	result := []*model.Notification{}
	for _, n := range r.s.notifications {
		if n.NotifiedID != userID {
			continue
		}
		cp := *n
		if u, ok := r.s.users[n.NotifierID]; ok {
			uc := *u
			cp.Notifier = &uc
		}
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if offset >= len(result) {
		return []*model.Notification{}, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, notif := range r.s.notifications {
		if notif.NotifiedID == userID && !notif.Read {
			n++
		}
	}
	return n, nil
}

func (r *notificationRepo) MarkAsRead(ctx context.Context, id, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.MarkAsRead"); err != nil {
		return 0, err
	}
	if err := checkUUID(id); err != nil {
		return 0, err
	}
	n, ok := r.s.notifications[id]
	if !ok || n.NotifiedID != userID || n.Read {
		return 0, nil
	}
	n.Read = true
	return 1, nil
}

func (r *notificationRepo) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, n := range r.s.notifications {
		if n.NotifiedID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) DeleteAllByNotifiedID(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for id, n := range r.s.notifications {
		if n.NotifiedID == userID {
			delete(r.s.notifications, id)
			count++
		}
	}
	return count, nil
}

// lists

type listRepo struct{ s *Store }

func (r *listRepo) countWishes(listID string) int64 {
	var n int64
	for _, w := range r.s.wishes {
		if w.ListID == listID {
			n++
		}
	}
	return n
}

func (r *listRepo) Create(ctx context.Context, list *model.List) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lists.Create"); err != nil {
		return err
	}
	if list.ID == "" {
		list.ID = uuid.New().String()
	}
	if list.Visibility == "" {
		list.Visibility = model.VisibilityPrivate
	}
	if list.Type == "" {
		list.Type = model.ListTypeWishlist
	}
	list.CreatedAt = r.s.now()
	list.UpdatedAt = list.CreatedAt
	cp := *list
	cp.Wishes = nil
	r.s.lists[list.ID] = &cp
	return nil
}

func (r *listRepo) FindByID(ctx context.Context, id string) (*model.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	l, ok := r.s.lists[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *listRepo) FindByIDWithWishes(ctx context.Context, id string) (*model.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	l, ok := r.s.lists[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	cp.Wishes = []model.Wish{}
	for _, w := range r.s.wishes {
		if w.ListID == id {
			cp.Wishes = append(cp.Wishes, *w)
		}
	}
	sort.Slice(cp.Wishes, func(i, j int) bool {
		if cp.Wishes[i].DesireLvl != cp.Wishes[j].DesireLvl {
			return cp.Wishes[i].DesireLvl > cp.Wishes[j].DesireLvl
		}
		return cp.Wishes[i].CreatedAt.Before(cp.Wishes[j].CreatedAt)
	})
	cp.WishCount = int64(len(cp.Wishes))
	return &cp, nil
}

func (r *listRepo) find(match func(l *model.List) bool) []*model.List {
	result := []*model.List{}
	for _, l := range r.s.lists {
		if match(l) {
			cp := *l
			cp.WishCount = r.countWishes(l.ID)
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

func (r *listRepo) FindByUserID(ctx context.Context, userID string) ([]*model.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(func(l *model.List) bool { return l.UserID == userID }), nil
}

func (r *listRepo) FindPublicByUserID(ctx context.Context, userID, listType string) ([]*model.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(func(l *model.List) bool {
		return l.UserID == userID && l.Visibility == model.VisibilityPublic && l.Type == listType
	}), nil
}

func (r *listRepo) Update(ctx context.Context, list *model.List) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lists.Update"); err != nil {
		return err
	}
	l, ok := r.s.lists[list.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.Name = list.Name
	l.Description = list.Description
	l.Visibility = list.Visibility
	l.Type = list.Type
	l.UpdatedAt = r.s.now()
	list.UpdatedAt = l.UpdatedAt
	return nil
}

func (r *listRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("lists.Delete"); err != nil {
		return err
	}
	for wid, w := range r.s.wishes {
		if w.ListID == id {
			delete(r.s.wishes, wid)
		}
	}
	delete(r.s.lists, id)
	return nil
}

// wishes

type wishRepo struct{ s *Store }

func (r *wishRepo) Create(ctx context.Context, wish *model.Wish) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("wishes.Create"); err != nil {
		return err
	}
	if wish.ID == "" {
		wish.ID = uuid.New().String()
	}
	wish.CreatedAt = r.s.now()
	wish.UpdatedAt = wish.CreatedAt
	cp := *wish
	r.s.wishes[wish.ID] = &cp
	return nil
}

func (r *wishRepo) FindByID(ctx context.Context, id string) (*model.Wish, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	w, ok := r.s.wishes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *wishRepo) Update(ctx context.Context, wish *model.Wish) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("wishes.Update"); err != nil {
		return err
	}
	if _, ok := r.s.wishes[wish.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	wish.UpdatedAt = r.s.now()
	cp := *wish
	r.s.wishes[wish.ID] = &cp
	return nil
}

func (r *wishRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.wishes, id)
	return nil
}
