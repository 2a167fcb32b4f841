package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"burrowfeed/internal/decmath"
	"burrowfeed/internal/feed"
	"burrowfeed/internal/filter"
	"burrowfeed/internal/model"
	"burrowfeed/internal/oracle"
	"burrowfeed/internal/refresh"
)

const eventTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// formatEvent renders one log line. Token amounts are valued in USD when
// prices is set and knows a path for the token.
func formatEvent(e model.Event, prices *refresh.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%d %-12s %s", e.Time.Format(eventTimeLayout), e.Seq, e.Kind, e.AccountID)

	switch e.Kind {
	case model.KindLiquidate, model.KindForceClose:
		if victim := e.LiquidationAccountID(); victim != "" {
			fmt.Fprintf(&b, " -> %s", victim)
		}
		if repaid := usdSum(e.RepaidSum()); repaid != "" {
			fmt.Fprintf(&b, " repaid $%s", repaid)
		}
		if collateral := usdSum(e.CollateralSum()); collateral != "" {
			fmt.Fprintf(&b, " collateral $%s", collateral)
		}
		if label, value, ok := liquidationResult(e); ok {
			fmt.Fprintf(&b, " %s $%s", label, decmath.FormatFixed(value, 2))
		}
	default:
		token, raw := e.TokenID(), e.Amount()
		if token == "" || raw == "" {
			break
		}
		fmt.Fprintf(&b, " %s %s", raw, token)
		if prices == nil {
			break
		}
		amount, err := decmath.Parse(raw)
		if err != nil {
			break
		}
		if usd, ok := oracle.TokenUSDValue(&prices.Prices, token, amount); ok {
			fmt.Fprintf(&b, " (~$%s)", decmath.FormatFixed(usd, 2))
		}
	}
	return b.String()
}

// liquidationResult returns the liquidator's profit (collateral minus
// repaid) for a liquidation, or the protocol's loss (repaid minus
// collateral) for a force close.
func liquidationResult(e model.Event) (string, decimal.Decimal, bool) {
	if e.RepaidSum() == "" || e.CollateralSum() == "" {
		return "", decimal.Zero, false
	}
	repaid, err := decmath.Parse(e.RepaidSum())
	if err != nil {
		return "", decimal.Zero, false
	}
	collateral, err := decmath.Parse(e.CollateralSum())
	if err != nil {
		return "", decimal.Zero, false
	}
	switch e.Kind {
	case model.KindLiquidate:
		return "profit", collateral.Sub(repaid), true
	case model.KindForceClose:
		return "loss", repaid.Sub(collateral), true
	}
	return "", decimal.Zero, false
}

func usdSum(raw string) string {
	if raw == "" {
		return ""
	}
	v, err := decmath.Parse(raw)
	if err != nil {
		return raw
	}
	return decmath.FormatFixed(v, 2)
}

func describeParams(p filter.Params) string {
	account := p.AccountID
	if account == "" {
		account = "all accounts"
	}
	if p.LiquidationsOnly {
		return account + ", liquidations only"
	}
	return account
}

// parseFilterEdit applies one command line to cur. Accepted commands:
//
//	account <id>
//	account
//	liquidations on|off
func parseFilterEdit(line string, cur filter.Params) (filter.Params, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return cur, fmt.Errorf("empty command")
	}
	switch fields[0] {
	case "account":
		switch len(fields) {
		case 1:
			cur.AccountID = ""
		case 2:
			cur.AccountID = fields[1]
		default:
			return cur, fmt.Errorf("usage: account [id]")
		}
	case "liquidations":
		if len(fields) != 2 || (fields[1] != "on" && fields[1] != "off") {
			return cur, fmt.Errorf("usage: liquidations on|off")
		}
		cur.LiquidationsOnly = fields[1] == "on"
	default:
		return cur, fmt.Errorf("unknown command %q", fields[0])
	}
	return cur, nil
}

// readFilterEdits applies filter commands read from r until it is exhausted.
// Edits accumulate on top of each other, so quick successive commands are
// debounced into one resubscription by the feed.
func readFilterEdits(ctx context.Context, r io.Reader, f *feed.Feed, logger *zap.Logger) {
	pending := f.Params()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		next, err := parseFilterEdit(line, pending)
		if err != nil {
			logger.Warn("ignoring filter command", zap.String("line", line), zap.Error(err))
			continue
		}
		pending = next
		f.SetFilter(pending)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("read filter commands", zap.Error(err))
	}
}
