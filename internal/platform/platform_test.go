package platform

import (
	"context"
	"errors"
	"net/netip"
	"os/user"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/app-blackhole/internal/core"
)

type fakeDevice struct {
	failOn  string
	created bool
	up      bool
	address netip.Prefix
	closes  int
}

func (d *fakeDevice) Create() error {
	if d.failOn == "create" {
		return errors.New("operation not permitted")
	}
	d.created = true
	return nil
}

func (d *fakeDevice) Configure(address netip.Prefix) error {
	if d.failOn == "configure" {
		return errors.New("invalid argument")
	}
	d.address = address
	return nil
}

func (d *fakeDevice) Up() error {
	d.up = true
	return nil
}

func (d *fakeDevice) Close() error {
	d.closes++
	return nil
}

func (d *fakeDevice) Name() string { return "blackhole0" }
func (d *fakeDevice) Index() int   { return 7 }

type fakeRouter struct {
	failUID  uint32
	routes   []netip.Prefix
	uids     []uint32
	removals int
}

func (r *fakeRouter) AddDefaultRoute(linkIndex int, destination netip.Prefix) error {
	r.routes = append(r.routes, destination)
	return nil
}

func (r *fakeRouter) AddUIDRule(uid uint32) error {
	if uid == r.failUID {
		return errors.New("file exists")
	}
	r.uids = append(r.uids, uid)
	return nil
}

func (r *fakeRouter) RemoveAll() error {
	r.removals++
	return nil
}

type fakeProtector struct {
	err    error
	calls  int
	closed bool
}

func (p *fakeProtector) EnsureProtectRule() error {
	p.calls++
	return p.err
}

func (p *fakeProtector) ProtectMark() uint32 { return 0x4242 }

func (p *fakeProtector) Close() error {
	p.closed = true
	return nil
}

func newTestFacility(dev *fakeDevice, rt *fakeRouter, prot *fakeProtector) *Facility {
	return &Facility{
		cfg: Config{
			Apps: map[string]uint32{"com.app.games": 10061},
		},
		protector: prot,
		newDevice: func() device { return dev },
		newRouter: func() router { return rt },
		lookupUser: func(name string) (*user.User, error) {
			if name == "games" {
				return &user.User{Username: "games", Uid: "5"}, nil
			}
			return nil, user.UnknownUserError(name)
		},
		setMark: func(int, uint32) error { return nil },
	}
}

func testParams(uids ...uint32) *core.Params {
	params := &core.Params{
		Address: netip.MustParsePrefix("192.168.0.0/24"),
		Routes: []netip.Prefix{
			netip.MustParsePrefix("0.0.0.0/0"),
			netip.MustParsePrefix("::/0"),
		},
	}
	for _, uid := range uids {
		params.Included = append(params.Included, core.App{ID: "app", UID: uid})
	}
	return params
}

func TestResolveApp(t *testing.T) {
	f := newTestFacility(&fakeDevice{}, &fakeRouter{}, &fakeProtector{})

	tests := []struct {
		id      string
		uid     uint32
		wantErr error
	}{
		{id: "com.app.games", uid: 10061},
		{id: " com.app.games ", uid: 10061},
		{id: "1000", uid: 1000},
		{id: "games", uid: 5},
		{id: "com.app.missing", wantErr: core.ErrAppNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			app, err := f.ResolveApp(tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.uid, app.UID)
		})
	}
}

func TestProtect(t *testing.T) {
	prot := &fakeProtector{}
	f := newTestFacility(&fakeDevice{}, &fakeRouter{}, prot)

	var marked uint32
	f.setMark = func(fd int, mark uint32) error {
		marked = mark
		return nil
	}

	assert.True(t, f.Protect(3))
	assert.Equal(t, uint32(0x4242), marked)
	assert.Equal(t, 1, prot.calls)

	f.setMark = func(int, uint32) error { return errors.New("operation not permitted") }
	assert.False(t, f.Protect(3))

	prot.err = errors.New("netlink: permission denied")
	assert.False(t, f.Protect(3))
}

func TestEstablish(t *testing.T) {
	dev := &fakeDevice{}
	rt := &fakeRouter{}
	f := newTestFacility(dev, rt, &fakeProtector{})

	h, err := f.Establish(context.Background(), testParams(10061, 10062))
	require.NoError(t, err)

	assert.Equal(t, "blackhole0", h.Name())
	assert.True(t, dev.up)
	assert.Equal(t, netip.MustParsePrefix("192.168.0.0/24"), dev.address)
	assert.Len(t, rt.routes, 2)
	assert.Equal(t, []uint32{10061, 10062}, rt.uids)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, 1, dev.closes)
	assert.Equal(t, 1, rt.removals)
}

func TestEstablishFailureUnwinds(t *testing.T) {
	tests := []struct {
		name string
		dev  *fakeDevice
		rt   *fakeRouter
	}{
		{name: "create", dev: &fakeDevice{failOn: "create"}, rt: &fakeRouter{}},
		{name: "configure", dev: &fakeDevice{failOn: "configure"}, rt: &fakeRouter{}},
		{name: "rule", dev: &fakeDevice{}, rt: &fakeRouter{failUID: 10062}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFacility(tt.dev, tt.rt, &fakeProtector{})

			h, err := f.Establish(context.Background(), testParams(10061, 10062))
			assert.Nil(t, h)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Equal(t, 1, tt.dev.closes)
			assert.Equal(t, 1, tt.rt.removals)
		})
	}
}

func TestEstablishCancelled(t *testing.T) {
	dev := &fakeDevice{}
	rt := &fakeRouter{}
	f := newTestFacility(dev, rt, &fakeProtector{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := f.Establish(ctx, testParams(10061))
	assert.Nil(t, h)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, dev.created)
	assert.Equal(t, 1, dev.closes)
}

func TestClose(t *testing.T) {
	prot := &fakeProtector{}
	f := newTestFacility(&fakeDevice{}, &fakeRouter{}, prot)

	require.NoError(t, f.Close())
	assert.True(t, prot.closed)
}
