package testutils

import (
	"context"
	"testing"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton/wallet"

	"github.com/smartcontractkit/proxy-ton/pkg/config"
	"github.com/smartcontractkit/proxy-ton/pkg/ton/sandbox"
)

// StartSandbox returns an empty sandbox using the default configuration.
func StartSandbox(t *testing.T) *sandbox.Blockchain {
	t.Helper()
	cfg := config.Defaults()
	require.NoError(t, cfg.ValidateConfig())
	return sandbox.New(logger.Test(t), cfg)
}

// CreateTreasuries returns one funded treasury per name.
func CreateTreasuries(t *testing.T, chain *sandbox.Blockchain, names ...string) []*sandbox.Treasury {
	t.Helper()
	treasuries := make([]*sandbox.Treasury, len(names))
	for i, name := range names {
		treasuries[i] = chain.Treasury(name)
		require.Positive(t, treasuries[i].Balance().Sign(), "treasury %s is not funded", name)
	}
	return treasuries
}

// FundAccounts airdrops amounts to recipients from funder with
// non-bounceable transfers, so uninitialized recipients keep the value.
func FundAccounts(t *testing.T, funder *sandbox.Treasury, recipients []*address.Address, amounts []tlb.Coins) {
	t.Helper()
	if len(recipients) != len(amounts) {
		t.Fatalf("number of recipients (%d) does not match number of amounts (%d)", len(recipients), len(amounts))
	}

	for i, addr := range recipients {
		rm, err := funder.SendWaitTransaction(context.Background(), &wallet.Message{
			Mode: wallet.PayGasSeparately,
			InternalMessage: &tlb.InternalMessage{
				Bounce:  false,
				DstAddr: addr,
				Amount:  amounts[i],
			},
		})
		require.NoError(t, err, "failed to fund %s", addr.String())
		require.True(t, rm.Success, "funding %s failed with exit code %d", addr.String(), rm.ExitCode)
	}
}
