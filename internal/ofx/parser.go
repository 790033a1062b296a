// Package ofx turns OFX/QFX bank and credit card statements into
// transaction anchors.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/paper-trail/internal/model"
)

var (
	severityTag = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	unclosedTag = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case
	content = severityTag.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML-style files sometimes drop the closing bracket of a bare tag line
	return unclosedTag.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file and returns one transaction anchor per
// statement line, in statement order.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Anchor, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var anchors []model.Anchor
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			anchors = append(anchors, p.convertList(stmt.BankTranList, currencyCode(stmt.CurDef))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			anchors = append(anchors, p.convertList(stmt.BankTranList, currencyCode(stmt.CurDef))...)
		}
	}

	slog.Info("Parsed OFX file",
		"anchors", len(anchors),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return anchors, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, currency string) []model.Anchor {
	if list == nil {
		return nil
	}
	anchors := make([]model.Anchor, 0, len(list.Transactions))
	for _, tx := range list.Transactions {
		anchors = append(anchors, p.convertTransaction(tx, currency))
	}
	return anchors
}

// convertTransaction maps one statement line to an anchor. Debits stay
// negative.
func (p *Parser) convertTransaction(tx ofxgo.Transaction, currency string) model.Anchor {
	if tx.Currency != nil {
		if code := currencyCode(tx.Currency.CurSym); code != "" {
			currency = code
		}
	}

	anchor := model.Anchor{
		Kind:        model.AnchorTransaction,
		ID:          string(tx.FiTID),
		Date:        tx.DtPosted.Time,
		Amount:      model.Cents(MinorUnits(&tx.TrnAmt.Rat)),
		Currency:    currency,
		PartnerName: p.extractMerchantName(tx),
		Description: strings.TrimSpace(string(tx.Name)),
		Reference:   reference(tx),
	}
	if anchor.Description == "" && tx.Payee != nil {
		anchor.Description = strings.TrimSpace(string(tx.Payee.Name))
	}
	return anchor
}

// MinorUnits converts a decimal amount to cents, rounding half away from
// zero.
func MinorUnits(amount *big.Rat) int64 {
	scaled := new(big.Rat).Mul(amount, big.NewRat(100, 1))
	num, den := scaled.Num(), scaled.Denom()

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if new(big.Int).Mul(new(big.Int).Abs(r), big.NewInt(2)).Cmp(den) >= 0 {
		if num.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	return q.Int64()
}

// reference prefers the memo, then the check number, then the FITID.
func reference(tx ofxgo.Transaction) string {
	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" {
		return memo
	}
	if tx.CheckNum != "" {
		return string(tx.CheckNum)
	}
	return string(tx.FiTID)
}

func currencyCode(sym ofxgo.CurrSymbol) string {
	code := sym.String()
	if code == "XXX" {
		return ""
	}
	return code
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// PAYEE is usually cleaner than NAME
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
		"SEPA LASTSCHRIFT ",
		"KARTENZAHLUNG ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " dates
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(strings.TrimSpace(name))
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}

// GetAccounts extracts the unique account IDs from the OFX file in the
// order they appear.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var accounts []string
	seen := make(map[string]bool)
	add := func(id ofxgo.String) {
		if id == "" || seen[string(id)] {
			return
		}
		seen[string(id)] = true
		accounts = append(accounts, string(id))
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.BankAcctFrom.AcctID)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.CCAcctFrom.AcctID)
		}
	}

	return accounts, nil
}
