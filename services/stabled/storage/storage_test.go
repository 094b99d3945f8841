package storage

import (
	"context"
	"testing"
	"time"

	stable "stablecore/native/stable"
)

func openTestDB(t *testing.T) *Storage {
	t.Helper()
	store, err := Open("file:stabled_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func receiptAddress(seed byte) stable.Address {
	var addr stable.Address
	for i := range addr {
		addr[i] = seed
	}
	return addr
}

func mintReceipt(occurredAt int64, amount uint64) stable.MintReceipt {
	return stable.MintReceipt{
		User:           receiptAddress(0x01),
		Benefactor:     receiptAddress(0x02),
		CollateralMint: receiptAddress(0x03),
		Amount:         amount,
		FeeAmount:      amount / 100,
		NetAmount:      amount - amount/100,
		OraclePriceUSD: 990_000,
		OneToOneAmount: amount,
		OracleAmount:   amount,
		MintAmount:     amount - amount/100,
		Timestamp:      occurredAt,
	}
}

func TestRecordAndListMints(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	first, err := store.RecordMint(ctx, mintReceipt(1_000, 1_000_000))
	if err != nil {
		t.Fatalf("record first: %v", err)
	}
	second, err := store.RecordMint(ctx, mintReceipt(2_000, 500_000))
	if err != nil {
		t.Fatalf("record second: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct receipt ids")
	}

	records, err := store.ListMints(ctx, 10)
	if err != nil {
		t.Fatalf("list mints: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("unexpected record count: %d", len(records))
	}
	if records[0].ID != second {
		t.Fatalf("expected newest first, got %s", records[0].ID)
	}
	if records[0].ResultAmount != "495000" {
		t.Fatalf("unexpected result amount: %s", records[0].ResultAmount)
	}
	if records[0].CollateralMint != receiptAddress(0x03).Hex() {
		t.Fatalf("unexpected collateral mint: %s", records[0].CollateralMint)
	}
}

func TestSummarize(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	if _, err := store.RecordMint(ctx, mintReceipt(1_000, 1_000_000)); err != nil {
		t.Fatalf("record mint: %v", err)
	}
	if _, err := store.RecordMint(ctx, mintReceipt(2_000, 1_000_000)); err != nil {
		t.Fatalf("record mint: %v", err)
	}
	redeem := stable.RedeemReceipt{
		User:           receiptAddress(0x01),
		Benefactor:     receiptAddress(0x02),
		CollateralMint: receiptAddress(0x03),
		Amount:         300_000,
		NetAmount:      300_000,
		OraclePriceUSD: 990_000,
		OneToOneAmount: 300_000,
		OracleAmount:   300_000,
		RedeemAmount:   300_000,
		Timestamp:      3_000,
	}
	if _, err := store.RecordRedeem(ctx, redeem); err != nil {
		t.Fatalf("record redeem: %v", err)
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.MintCount != 2 || summary.RedeemCount != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.MintVolume.Int64() != 1_980_000 {
		t.Fatalf("unexpected mint volume: %s", summary.MintVolume)
	}
	if summary.RedeemVolume.Int64() != 300_000 {
		t.Fatalf("unexpected redeem volume: %s", summary.RedeemVolume)
	}
}

func TestPruneReceipts(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	if _, err := store.RecordMint(ctx, mintReceipt(1_000, 1_000_000)); err != nil {
		t.Fatalf("record old: %v", err)
	}
	if _, err := store.RecordMint(ctx, mintReceipt(5_000, 1_000_000)); err != nil {
		t.Fatalf("record recent: %v", err)
	}

	removed, err := store.PruneReceipts(ctx, time.Unix(2_000, 0))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("unexpected removed count: %d", removed)
	}
	records, err := store.ListMints(ctx, 10)
	if err != nil {
		t.Fatalf("list after prune: %v", err)
	}
	if len(records) != 1 || records[0].OccurredAtUnix != 5_000 {
		t.Fatalf("unexpected survivors: %+v", records)
	}
}

func TestOracleSampleHistory(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()
	vault := receiptAddress(0x03).Hex()

	if _, ok, err := store.LatestOracleSample(ctx, vault); err != nil || ok {
		t.Fatalf("expected no sample, got ok=%v err=%v", ok, err)
	}
	if err := store.RecordOracleSample(ctx, vault, 980_000, 1_000); err != nil {
		t.Fatalf("record sample: %v", err)
	}
	if err := store.RecordOracleSample(ctx, vault, 990_000, 2_000); err != nil {
		t.Fatalf("record sample: %v", err)
	}
	sample, ok, err := store.LatestOracleSample(ctx, vault)
	if err != nil {
		t.Fatalf("latest sample: %v", err)
	}
	if !ok || sample.PriceUSD != 990_000 || sample.ObservedAtUnix != 2_000 {
		t.Fatalf("unexpected sample: ok=%v %+v", ok, sample)
	}
}

func TestFileDSNRequiresPath(t *testing.T) {
	if _, err := FileDSN("   "); err != ErrPathRequired {
		t.Fatalf("expected ErrPathRequired, got %v", err)
	}
	dsn, err := FileDSN("stabled.sqlite")
	if err != nil {
		t.Fatalf("file dsn: %v", err)
	}
	if dsn == "" {
		t.Fatalf("expected dsn")
	}
}
