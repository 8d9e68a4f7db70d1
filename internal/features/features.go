// Package features builds the customer feature pipelines as Snowflake SQL.
// Every builder returns a squirrel SelectBuilder so stages can be nested and
// rendered once, then pushed down to the warehouse.
package features

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/iancoleman/strcase"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

// Default tables and keys of the customer quickstart data set.
const (
	DefaultCustomerTable = "CUSTOMER"
	DefaultBehaviorTable = "PURCHASE_BEHAVIOR"
	DefaultEntityKey     = "O_CUSTOMER_SK"
	DefaultTimestamp     = "LATEST_ORDER_DATE"
)

type column struct {
	table string // "c" for customers, "b" for purchase behavior
	name  string
	as    string
}

var customerColumns = []column{
	{"c", "CUSTOMER_ID", ""},
	{"c", "AGE", ""},
	{"c", "ANNUAL_INCOME", ""},
	{"c", "LOYALTY_TIER", ""},
	{"c", "GENDER", ""},
	{"c", "STATE", ""},
	{"c", "TENURE_MONTHS", ""},
	{"c", "SIGNUP_DATE", ""},
	{"c", "CREATED_AT", "CUSTOMER_CREATED_AT"},
	{"b", "AVG_ORDER_VALUE", ""},
	{"b", "PURCHASE_FREQUENCY", ""},
	{"b", "RETURN_RATE", ""},
	{"b", "LIFETIME_VALUE", ""},
	{"b", "LAST_PURCHASE_DATE", ""},
	{"b", "TOTAL_ORDERS", ""},
	{"b", "UPDATED_AT", "BEHAVIOR_UPDATED_AT"},
}

// CustomerColumns lists the output columns of LoadCustomerData in order.
func CustomerColumns() []string {
	out := make([]string, 0, len(customerColumns))
	for _, c := range customerColumns {
		if c.as != "" {
			out = append(out, c.as)
		} else {
			out = append(out, c.name)
		}
	}
	return out
}

// DerivedColumns lists the columns PreProcess adds.
var DerivedColumns = []string{
	"AVERAGE_ORDER_PER_MONTH",
	"DAYS_SINCE_LAST_PURCHASE",
	"DAYS_SINCE_SIGNUP",
	"EXPECTED_DAYS_BETWEEN_PURCHASES",
	"DAYS_SINCE_EXPECTED_LAST_PURCHASE_DATE",
}

// Table selects every column of a table.
func Table(name string) sq.SelectBuilder {
	return sq.Select("*").From(name)
}

// LoadCustomerData left joins customers to their purchase behavior on
// CUSTOMER_ID and keeps the modelling columns.
func LoadCustomerData(customer, behavior string) sq.SelectBuilder {
	if customer == "" {
		customer = DefaultCustomerTable
	}
	if behavior == "" {
		behavior = DefaultBehaviorTable
	}

	cols := make([]string, 0, len(customerColumns))
	for _, c := range customerColumns {
		expr := c.table + "." + c.name
		if c.as != "" {
			expr += " AS " + c.as
		}
		cols = append(cols, expr)
	}

	return sq.Select(cols...).
		From(customer + " AS c").
		LeftJoin(behavior + " AS b ON c.CUSTOMER_ID = b.CUSTOMER_ID")
}

// PreProcess rounds ANNUAL_INCOME and derives the recency and frequency
// features from the output of LoadCustomerData.
func PreProcess(source sq.SelectBuilder) sq.SelectBuilder {
	daysSinceLast := "DATEDIFF(day, LAST_PURCHASE_DATE, CURRENT_DATE())"
	expectedGap := "30 / PURCHASE_FREQUENCY"

	return sq.Select(
		"* REPLACE (ROUND(ANNUAL_INCOME, 0) AS ANNUAL_INCOME)",
		"TOTAL_ORDERS / TENURE_MONTHS AS AVERAGE_ORDER_PER_MONTH",
		daysSinceLast+" AS DAYS_SINCE_LAST_PURCHASE",
		"DATEDIFF(day, SIGNUP_DATE, CURRENT_DATE()) AS DAYS_SINCE_SIGNUP",
		expectedGap+" AS EXPECTED_DAYS_BETWEEN_PURCHASES",
		fmt.Sprintf("ROUND(%s - (%s), 0) AS DAYS_SINCE_EXPECTED_LAST_PURCHASE_DATE", daysSinceLast, expectedGap),
	).FromSelect(source, "raw_data")
}

// SpineOptions names the columns of a spine.
type SpineOptions struct {
	EntityKey string // defaults to O_CUSTOMER_SK
	Timestamp string // defaults to LATEST_ORDER_DATE
}

// Spine reduces a feature frame to one row per entity with its latest
// timestamp as ASOF_DATE, plus the constant COL_1 column.
func Spine(source sq.SelectBuilder, opts SpineOptions) sq.SelectBuilder {
	key := ColumnName(opts.EntityKey, DefaultEntityKey)
	ts := ColumnName(opts.Timestamp, DefaultTimestamp)

	return sq.Select(
		key,
		fmt.Sprintf("MAX(%s) AS ASOF_DATE", ts),
		"'values1' AS COL_1",
	).FromSelect(source, "feature_df").
		GroupBy(key)
}

// ColumnName normalizes a user supplied column name to the upper snake case
// Snowflake stores unquoted identifiers in, falling back to def when empty.
func ColumnName(name, def string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return def
	}
	if strings.HasPrefix(name, `"`) {
		return name
	}
	return strcase.ToScreamingSnake(name)
}

// SQL renders a builder. Pipelines never bind parameters, so any argument
// is reported as an error.
func SQL(b sq.SelectBuilder) (string, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "Failed to build feature query")
	}
	if len(args) > 0 {
		return "", errors.New(errors.ErrCodeInvalidInput, "Feature query has unbound parameters").
			WithContext("args", len(args))
	}
	return query, nil
}
