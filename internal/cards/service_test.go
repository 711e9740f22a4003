package cards

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/store/schema"
)

// =============================================================================
// In-memory fakes
// =============================================================================

type cardKey struct {
	class    domain.ClassID
	instance domain.InstanceID
}

type memStore struct {
	counter      uint64
	classes      map[domain.ClassID]*schema.AthleteClass
	classesByMH  map[string]domain.ClassID
	classAttrs   map[domain.ClassID]domain.AthleteMetadata
	prices       map[cardKey]decimal.Decimal
	totalShares  map[cardKey]uint32
	tiers        map[cardKey]domain.Tier
	views        map[cardKey]uint32
	votes        map[cardKey]uint32
}

func newMemStore() *memStore {
	return &memStore{
		classes:     make(map[domain.ClassID]*schema.AthleteClass),
		classesByMH: make(map[string]domain.ClassID),
		classAttrs:  make(map[domain.ClassID]domain.AthleteMetadata),
		prices:      make(map[cardKey]decimal.Decimal),
		totalShares: make(map[cardKey]uint32),
		tiers:       make(map[cardKey]domain.Tier),
		views:       make(map[cardKey]uint32),
		votes:       make(map[cardKey]uint32),
	}
}

func (m *memStore) NextClassID(ctx context.Context) (domain.ClassID, error) {
	if m.counter == math.MaxUint64 {
		return 0, domain.ErrIDSpaceExhausted
	}
	m.counter++
	return domain.ClassID(m.counter), nil
}

func (m *memStore) CreateClass(ctx context.Context, class *schema.AthleteClass) error {
	if _, ok := m.classesByMH[class.MetadataHash]; ok {
		return domain.ErrAthleteAlreadyExists
	}
	cp := *class
	m.classes[domain.ClassID(class.ID)] = &cp
	m.classesByMH[class.MetadataHash] = domain.ClassID(class.ID)
	return nil
}

func (m *memStore) GetClassByID(ctx context.Context, id domain.ClassID) (*schema.AthleteClass, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, nil
	}
	cp := *class
	return &cp, nil
}

func (m *memStore) GetClassByMetadataHash(ctx context.Context, hash string) (*schema.AthleteClass, error) {
	id, ok := m.classesByMH[hash]
	if !ok {
		return nil, nil
	}
	return m.GetClassByID(ctx, id)
}

func (m *memStore) ListClasses(ctx context.Context, limit, offset int) ([]*schema.AthleteClass, uint64, error) {
	ids := make([]uint64, 0, len(m.classes))
	for id := range m.classes {
		ids = append(ids, uint64(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*schema.AthleteClass
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) == limit {
			break
		}
		cp := *m.classes[domain.ClassID(id)]
		out = append(out, &cp)
	}
	return out, uint64(len(ids)), nil
}

func (m *memStore) MarkCardsMinted(ctx context.Context, id domain.ClassID) error {
	class, ok := m.classes[id]
	if !ok {
		return domain.ErrClassNotFound
	}
	class.CardsMinted = true
	return nil
}

func (m *memStore) SetClassAttributes(ctx context.Context, id domain.ClassID, meta domain.AthleteMetadata) error {
	m.classAttrs[id] = meta
	return nil
}

func (m *memStore) ClassAttributes(ctx context.Context, id domain.ClassID) (*domain.AthleteMetadata, error) {
	meta, ok := m.classAttrs[id]
	if !ok {
		return nil, domain.ErrAttributeMissing
	}
	return &meta, nil
}

func (m *memStore) SetPrice(ctx context.Context, id domain.ClassID, instance domain.InstanceID, price *decimal.Decimal) error {
	key := cardKey{id, instance}
	if price == nil {
		delete(m.prices, key)
		return nil
	}
	m.prices[key] = *price
	return nil
}

func (m *memStore) GetPrice(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (*decimal.Decimal, error) {
	price, ok := m.prices[cardKey{id, instance}]
	if !ok {
		return nil, nil
	}
	return &price, nil
}

func (m *memStore) SetTotalShares(ctx context.Context, id domain.ClassID, instance domain.InstanceID, shares uint32) error {
	m.totalShares[cardKey{id, instance}] = shares
	return nil
}

func (m *memStore) GetTotalShares(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (uint32, error) {
	shares, ok := m.totalShares[cardKey{id, instance}]
	if !ok {
		return 0, domain.ErrAttributeMissing
	}
	return shares, nil
}

func (m *memStore) SetTier(ctx context.Context, id domain.ClassID, instance domain.InstanceID, tier domain.Tier) error {
	m.tiers[cardKey{id, instance}] = tier
	return nil
}

func (m *memStore) GetTier(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (domain.Tier, error) {
	tier, ok := m.tiers[cardKey{id, instance}]
	if !ok {
		return "", domain.ErrAttributeMissing
	}
	return tier, nil
}

func (m *memStore) SetViews(ctx context.Context, id domain.ClassID, instance domain.InstanceID, views uint32) error {
	m.views[cardKey{id, instance}] = views
	return nil
}

func (m *memStore) GetViews(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (uint32, error) {
	views, ok := m.views[cardKey{id, instance}]
	if !ok {
		return 0, domain.ErrAttributeMissing
	}
	return views, nil
}

func (m *memStore) SetVotes(ctx context.Context, id domain.ClassID, instance domain.InstanceID, votes uint32) error {
	m.votes[cardKey{id, instance}] = votes
	return nil
}

func (m *memStore) GetVotes(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (uint32, error) {
	votes, ok := m.votes[cardKey{id, instance}]
	if !ok {
		return 0, domain.ErrAttributeMissing
	}
	return votes, nil
}

func (m *memStore) CardAttributes(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (*domain.CardAttributes, error) {
	price, err := m.GetPrice(ctx, id, instance)
	if err != nil {
		return nil, err
	}
	shares, err := m.GetTotalShares(ctx, id, instance)
	if err != nil {
		return nil, err
	}
	tier, err := m.GetTier(ctx, id, instance)
	if err != nil {
		return nil, err
	}
	views, err := m.GetViews(ctx, id, instance)
	if err != nil {
		return nil, err
	}
	votes, err := m.GetVotes(ctx, id, instance)
	if err != nil {
		return nil, err
	}
	return &domain.CardAttributes{
		Price:       price,
		TotalShares: shares,
		Tier:        tier,
		Views:       views,
		Votes:       votes,
	}, nil
}

func (m *memStore) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memAssets struct {
	admins map[domain.ClassID]domain.Account
	owners map[cardKey]domain.Account
}

func newMemAssets() *memAssets {
	return &memAssets{
		admins: make(map[domain.ClassID]domain.Account),
		owners: make(map[cardKey]domain.Account),
	}
}

func (m *memAssets) CreateClass(ctx context.Context, id domain.ClassID, admin domain.Account) error {
	m.admins[id] = admin
	return nil
}

func (m *memAssets) MintInstance(ctx context.Context, id domain.ClassID, instance domain.InstanceID, owner domain.Account) error {
	m.owners[cardKey{id, instance}] = owner
	return nil
}

func (m *memAssets) OwnerOf(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (domain.Account, error) {
	owner, ok := m.owners[cardKey{id, instance}]
	if !ok {
		return "", domain.ErrCardHasNoOwner
	}
	return owner, nil
}

func (m *memAssets) Transfer(ctx context.Context, id domain.ClassID, instance domain.InstanceID, from, to domain.Account) error {
	owner, ok := m.owners[cardKey{id, instance}]
	if !ok {
		return domain.ErrCardHasNoOwner
	}
	if owner != from {
		return domain.ErrMustBeCardOwner
	}
	m.owners[cardKey{id, instance}] = to
	return nil
}

func (m *memAssets) CardsOwnedBy(ctx context.Context, owner domain.Account) ([]*schema.Card, error) {
	var out []*schema.Card
	for key, o := range m.owners {
		if o == owner {
			out = append(out, &schema.Card{
				ClassID:    uint64(key.class),
				InstanceID: uint32(key.instance),
				Owner:      string(o),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassID != out[j].ClassID {
			return out[i].ClassID < out[j].ClassID
		}
		return out[i].InstanceID < out[j].InstanceID
	})
	return out, nil
}

type memFunds struct {
	balances map[domain.Account]decimal.Decimal
}

func newMemFunds() *memFunds {
	return &memFunds{balances: make(map[domain.Account]decimal.Decimal)}
}

func (m *memFunds) BalanceOf(ctx context.Context, account domain.Account) (decimal.Decimal, error) {
	balance, ok := m.balances[account]
	if !ok {
		return decimal.Zero, nil
	}
	return balance, nil
}

func (m *memFunds) Deposit(ctx context.Context, account domain.Account, amount decimal.Decimal) error {
	balance := m.balances[account]
	m.balances[account] = balance.Add(amount)
	return nil
}

func (m *memFunds) Transfer(ctx context.Context, from, to domain.Account, amount decimal.Decimal) error {
	balance, ok := m.balances[from]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if balance.LessThan(amount) {
		return domain.ErrInsufficientFunds
	}
	m.balances[from] = balance.Sub(amount)
	m.balances[to] = m.balances[to].Add(amount)
	return nil
}

// =============================================================================
// Test helpers
// =============================================================================

type fixture struct {
	store   *memStore
	assets  *memAssets
	funds   *memFunds
	service *Service
}

func newFixture() *fixture {
	s := newMemStore()
	assets := newMemAssets()
	funds := newMemFunds()
	return &fixture{
		store:   s,
		assets:  assets,
		funds:   funds,
		service: NewService(s, assets, funds),
	}
}

func metadata(name string) domain.AthleteMetadata {
	return domain.AthleteMetadata{
		Name:   name,
		Height: domain.HeightFromMillimeters(1880),
		Weight: domain.WeightFromGrams(75000),
	}
}

// =============================================================================
// Registration and mint
// =============================================================================

func TestRegisterAndMint_FirstClassGetsIDOne(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	id, err := f.service.RegisterAndMint(ctx, "admin", metadata("Kento Momota"))
	require.NoError(t, err)
	assert.Equal(t, domain.ClassID(1), id)

	id, err = f.service.RegisterAndMint(ctx, "admin", metadata("Chen Long"))
	require.NoError(t, err)
	assert.Equal(t, domain.ClassID(2), id)
}

func TestRegisterAndMint_PopulationCensus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	id, err := f.service.RegisterAndMint(ctx, "admin", metadata("Lee Chong Wei"))
	require.NoError(t, err)

	census := map[domain.Tier]int{}
	for i := 0; i < domain.CardsPerClass; i++ {
		instance := domain.InstanceID(i)

		owner, err := f.assets.OwnerOf(ctx, id, instance)
		require.NoError(t, err)
		assert.Equal(t, domain.Account("admin"), owner)

		tier, err := f.store.GetTier(ctx, id, instance)
		require.NoError(t, err)
		census[tier]++

		shares, err := f.store.GetTotalShares(ctx, id, instance)
		require.NoError(t, err)
		assert.Zero(t, shares)

		views, err := f.store.GetViews(ctx, id, instance)
		require.NoError(t, err)
		assert.Zero(t, views)
		votes, err := f.store.GetVotes(ctx, id, instance)
		require.NoError(t, err)
		assert.Zero(t, votes)

		price, err := f.store.GetPrice(ctx, id, instance)
		require.NoError(t, err)
		assert.Nil(t, price)
	}

	assert.Equal(t, domain.SilverCount, census[domain.TierSilver])
	assert.Equal(t, domain.GoldCount, census[domain.TierGold])
	assert.Equal(t, domain.PlatinumCount, census[domain.TierPlatinum])

	// No instance beyond the population
	_, err = f.assets.OwnerOf(ctx, id, domain.InstanceID(domain.CardsPerClass))
	require.ErrorIs(t, err, domain.ErrCardHasNoOwner)

	class, err := f.service.GetClass(ctx, id)
	require.NoError(t, err)
	assert.True(t, class.CardsMinted)
}

func TestRegisterAndMint_DuplicateMetadata(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	meta := metadata("Anthony Ginting")
	_, err := f.service.RegisterAndMint(ctx, "admin", meta)
	require.NoError(t, err)

	_, err = f.service.RegisterAndMint(ctx, "someone-else", meta)
	require.ErrorIs(t, err, domain.ErrAthleteAlreadyExists)

	// Only one class exists
	_, total, err := f.service.ListClasses(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func TestRegisterAndMint_NearIdenticalMetadataIsDistinct(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	meta := metadata("Jonatan Christie")
	_, err := f.service.RegisterAndMint(ctx, "admin", meta)
	require.NoError(t, err)

	// One gram apart is a different athlete record
	other := meta
	other.Weight = domain.WeightFromGrams(meta.Weight.Grams + 1)
	id, err := f.service.RegisterAndMint(ctx, "admin", other)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassID(2), id)
}

func TestRegisterAndMint_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.RegisterAndMint(ctx, "", metadata("No Admin"))
	require.Error(t, err)

	_, err = f.service.RegisterAndMint(ctx, "admin", domain.AthleteMetadata{})
	require.Error(t, err)
}

// =============================================================================
// Price listing
// =============================================================================

func registerOne(t *testing.T, f *fixture) domain.ClassID {
	id, err := f.service.RegisterAndMint(context.Background(), "admin", metadata("Viktor Axelsen"))
	require.NoError(t, err)
	return id
}

func TestSetPrice_OwnerOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	price := decimal.NewFromInt(500)
	err := f.service.SetPrice(ctx, "mallory", id, 0, &price)
	require.ErrorIs(t, err, domain.ErrMustBeCardOwner)

	got, err := f.store.GetPrice(ctx, id, 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, f.service.SetPrice(ctx, "admin", id, 0, &price))
	got, err = f.store.GetPrice(ctx, id, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, price.Equal(*got))
}

func TestSetPrice_NilDelists(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	price := decimal.NewFromInt(500)
	require.NoError(t, f.service.SetPrice(ctx, "admin", id, 0, &price))
	require.NoError(t, f.service.SetPrice(ctx, "admin", id, 0, nil))

	got, err := f.store.GetPrice(ctx, id, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetPrice_NegativeRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	price := decimal.NewFromInt(-1)
	err := f.service.SetPrice(ctx, "admin", id, 0, &price)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrMustBeCardOwner)
}

func TestSetPrice_UnissuedCard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	price := decimal.NewFromInt(500)
	err := f.service.SetPrice(ctx, "admin", 99, 0, &price)
	require.ErrorIs(t, err, domain.ErrCardHasNoOwner)
}

// =============================================================================
// Purchase
// =============================================================================

func TestPurchase_NotForSale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	_, err := f.service.Purchase(ctx, "buyer", id, 0)
	require.ErrorIs(t, err, domain.ErrCardNotForSale)
}

func TestPurchase_InsufficientFunds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	price := decimal.NewFromInt(100)
	require.NoError(t, f.service.SetPrice(ctx, "admin", id, 0, &price))
	require.NoError(t, f.service.Deposit(ctx, "buyer", decimal.NewFromInt(99)))

	_, err := f.service.Purchase(ctx, "buyer", id, 0)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Nothing changed: same owner, still listed, balances intact
	owner, err := f.assets.OwnerOf(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Account("admin"), owner)

	got, err := f.store.GetPrice(ctx, id, 0)
	require.NoError(t, err)
	require.NotNil(t, got)

	balance, err := f.service.BalanceOf(ctx, "buyer")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(99)))
}

func TestPurchase_BuyerWithoutAccount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	price := decimal.NewFromInt(100)
	require.NoError(t, f.service.SetPrice(ctx, "admin", id, 0, &price))

	_, err := f.service.Purchase(ctx, "stranger", id, 0)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestPurchase_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	price := decimal.NewFromInt(100)
	require.NoError(t, f.service.SetPrice(ctx, "admin", id, 0, &price))
	require.NoError(t, f.service.Deposit(ctx, "buyer", decimal.NewFromInt(150)))

	paid, err := f.service.Purchase(ctx, "buyer", id, 0)
	require.NoError(t, err)
	assert.True(t, price.Equal(paid))

	// Exact amount moved
	balance, err := f.service.BalanceOf(ctx, "buyer")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(50)))
	balance, err = f.service.BalanceOf(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))

	// Ownership flipped
	owner, err := f.assets.OwnerOf(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Account("buyer"), owner)

	// A sold card is delisted
	got, err := f.store.GetPrice(ctx, id, 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	// A second purchase attempt fails
	_, err = f.service.Purchase(ctx, "buyer2", id, 0)
	require.ErrorIs(t, err, domain.ErrCardNotForSale)
}

func TestPurchase_ExactBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	price := decimal.NewFromInt(100)
	require.NoError(t, f.service.SetPrice(ctx, "admin", id, 0, &price))
	require.NoError(t, f.service.Deposit(ctx, "buyer", decimal.NewFromInt(100)))

	_, err := f.service.Purchase(ctx, "buyer", id, 0)
	require.NoError(t, err)

	balance, err := f.service.BalanceOf(ctx, "buyer")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestPurchase_UnissuedCard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.Purchase(ctx, "buyer", 99, 0)
	require.ErrorIs(t, err, domain.ErrCardHasNoOwner)
}

// =============================================================================
// Attestation intake
// =============================================================================

func TestRecordSignal_Overwrites(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	require.NoError(t, f.service.RecordSignal(ctx, id, 5, 100, 40))
	require.NoError(t, f.service.RecordSignal(ctx, id, 5, 7, 3))

	views, err := f.store.GetViews(ctx, id, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), views)
	votes, err := f.store.GetVotes(ctx, id, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), votes)
}

func TestRecordSignal_UnissuedCard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.service.RecordSignal(ctx, 7, 0, 1, 1)
	require.ErrorIs(t, err, domain.ErrCardHasNoOwner)
}

// =============================================================================
// Reads
// =============================================================================

func TestGetClass_NotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.GetClass(ctx, 1)
	require.ErrorIs(t, err, domain.ErrClassNotFound)
}

func TestGetCard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	detail, err := f.service.GetCard(ctx, id, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.Account("admin"), detail.Owner)
	assert.Equal(t, domain.TierGold, detail.Attributes.Tier)
	assert.Nil(t, detail.Attributes.Price)
}

func TestCardsOwnedBy_TracksPurchases(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := registerOne(t, f)

	price := decimal.NewFromInt(10)
	require.NoError(t, f.service.SetPrice(ctx, "admin", id, 42, &price))
	require.NoError(t, f.service.Deposit(ctx, "buyer", decimal.NewFromInt(10)))
	_, err := f.service.Purchase(ctx, "buyer", id, 42)
	require.NoError(t, err)

	owned, err := f.service.CardsOwnedBy(ctx, "buyer")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, uint32(42), owned[0].InstanceID)

	owned, err = f.service.CardsOwnedBy(ctx, "admin")
	require.NoError(t, err)
	assert.Len(t, owned, domain.CardsPerClass-1)
}
