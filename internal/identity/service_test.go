package identity

import (
	"context"
	"testing"

	"github.com/zawadi-pay/zawadi_pay/internal/wallet"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository(), wallet.NewService(wallet.NewMemoryStore()))
}

func TestRegisterProvisionsWallets(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Phone: "+243810000001", PIN: "1234", DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Tier != tierZero {
		t.Fatalf("expected tier0, got %s", user.Tier)
	}

	wallets, err := svc.Wallets(ctx, user.ID)
	if err != nil {
		t.Fatalf("wallets: %v", err)
	}
	if wallets.Bank.Kind != wallet.KindBank || wallets.Coin.Kind != wallet.KindCoin {
		t.Fatalf("unexpected wallet kinds: %+v", wallets)
	}
}

func TestRegisterRejectsShortPIN(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Register(context.Background(), Credentials{Phone: "+243810000001", PIN: "12"}); err == nil {
		t.Fatalf("expected error for short PIN")
	}
}

func TestAuthenticateChecksPINAndDevice(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Phone: "+243810000001", PIN: "1234", DeviceID: "dev-1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Authenticate(ctx, Credentials{Phone: "+243810000001", PIN: "1234", DeviceID: "dev-1"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Tier != tierOne {
		t.Fatalf("expected tier upgrade on login, got %s", user.Tier)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Phone: "+243810000001", PIN: "9999", DeviceID: "dev-1"}); err == nil {
		t.Fatalf("expected invalid PIN error")
	}
	if _, err := svc.Authenticate(ctx, Credentials{Phone: "+243810000001", PIN: "1234", DeviceID: "other"}); err == nil {
		t.Fatalf("expected device mismatch error")
	}
}
