package ofx

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>EUR
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-49.99
<FITID>2024012001
<NAME>SEPA LASTSCHRIFT ACME GMBH
<MEMO>RE-2024-00451
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{name: "valid bank statement", ofxData: sampleBankOFX, expectedCount: 3},
		{name: "valid credit card statement", ofxData: sampleCreditCardOFX, expectedCount: 2},
		{name: "invalid OFX data", ofxData: "not valid OFX", expectedError: true},
		{name: "empty OFX", ofxData: "", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			anchors, err := parser.ParseFile(context.Background(), strings.NewReader(tt.ofxData))

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, anchors, tt.expectedCount)
			for _, a := range anchors {
				assert.Equal(t, model.AnchorTransaction, a.Kind)
				assert.False(t, a.IsEmpty())
			}
		})
	}
}

func TestParseBankAnchors(t *testing.T) {
	parser := NewParser()
	anchors, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, anchors, 3)

	a1 := anchors[0]
	assert.Equal(t, "2024011501", a1.ID)
	assert.Equal(t, "STARBUCKS STORE #1234", a1.Description)
	assert.Equal(t, "STARBUCKS STORE #1234", a1.PartnerName)
	require.NotNil(t, a1.Amount)
	assert.Equal(t, int64(-2550), *a1.Amount)
	assert.Equal(t, "EUR", a1.Currency)
	assert.Equal(t, "2024011501", a1.Reference)
	assert.Equal(t, 2024, a1.Date.Year())
	assert.Equal(t, time.January, a1.Date.Month())
	assert.Equal(t, 15, a1.Date.Day())

	a2 := anchors[1]
	assert.Equal(t, "ACME GMBH", a2.PartnerName)
	assert.Equal(t, "SEPA LASTSCHRIFT ACME GMBH", a2.Description)
	assert.Equal(t, "RE-2024-00451", a2.Reference)
	assert.Equal(t, int64(-4999), *a2.Amount)

	a3 := anchors[2]
	assert.Equal(t, "CHECK #1234", a3.PartnerName)
	assert.Equal(t, "1234", a3.Reference)
	assert.Equal(t, int64(-50000), *a3.Amount)
}

func TestParseCreditCardAnchors(t *testing.T) {
	parser := NewParser()
	anchors, err := parser.ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, anchors, 2)

	assert.Equal(t, "CC2024011001", anchors[0].ID)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", anchors[0].PartnerName)
	assert.Equal(t, int64(-4599), *anchors[0].Amount)
	assert.Equal(t, "USD", anchors[0].Currency)

	assert.Equal(t, "NETFLIX.COM", anchors[1].PartnerName)
	assert.Equal(t, int64(-1500), *anchors[1].Amount)
}

func TestParseFileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().ParseFile(ctx, strings.NewReader(sampleBankOFX))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"-25.50", -2550},
		{"49.99", 4999},
		{"0.005", 1},
		{"-0.005", -1},
		{"0.004", 0},
		{"1234.5678", 123457},
		{"-1234.5649", -123456},
		{"0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, ok := new(big.Rat).SetString(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, MinorUnits(r))
		})
	}
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		memo     string
		expected string
	}{
		{name: "remove POS prefix", input: "POS PURCHASE STARBUCKS", expected: "STARBUCKS"},
		{name: "remove DEBIT CARD prefix", input: "DEBIT CARD PURCHASE WHOLE FOODS", expected: "WHOLE FOODS"},
		{name: "remove SEPA prefix", input: "SEPA LASTSCHRIFT Telekom Deutschland", expected: "Telekom Deutschland"},
		{name: "keep clean name", input: "NETFLIX.COM", expected: "NETFLIX.COM"},
		{name: "trim whitespace", input: "  AMAZON.COM  ", expected: "AMAZON.COM"},
		{name: "strip leading date", input: "01/15 HETZNER ONLINE", expected: "HETZNER ONLINE"},
		{name: "generic name uses memo", input: "PAYMENT", memo: "Hetzner Online", expected: "Hetzner Online"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
				Memo: ofxgo.String(tt.memo),
			}
			assert.Equal(t, tt.expected, parser.extractMerchantName(tx))
		})
	}
}

func TestExtractMerchantNamePrefersPayee(t *testing.T) {
	tx := ofxgo.Transaction{
		Name:  ofxgo.String("POS PURCHASE 4711"),
		Payee: &ofxgo.Payee{Name: ofxgo.String(" Acme GmbH ")},
	}
	assert.Equal(t, "Acme GmbH", NewParser().extractMerchantName(tx))
}

func TestGetAccounts(t *testing.T) {
	parser := NewParser()

	accounts, err := parser.GetAccounts(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	assert.Equal(t, []string{"1234567890"}, accounts)

	accounts, err = parser.GetAccounts(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	assert.Equal(t, []string{"4111111111111111"}, accounts)
}
