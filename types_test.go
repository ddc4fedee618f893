package mysql

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestConvertTextValueIntegers(t *testing.T) {
	col := columnDef{fieldType: fieldTypeLong}
	v, err := convertTextValue(col, []byte("42"), false, time.UTC)
	if err != nil {
		t.Fatalf("convertTextValue: %v", err)
	}
	if v.(int64) != 42 {
		t.Errorf("got %v, want 42", v)
	}

	col.flags = flagUnsigned
	v, err = convertTextValue(col, []byte("4294967295"), false, time.UTC)
	if err != nil {
		t.Fatalf("convertTextValue: %v", err)
	}
	if v.(uint64) != 4294967295 {
		t.Errorf("got %v, want 4294967295", v)
	}
}

func TestConvertTextValueFloat(t *testing.T) {
	col := columnDef{fieldType: fieldTypeDouble}
	v, err := convertTextValue(col, []byte("3.25"), false, time.UTC)
	if err != nil {
		t.Fatalf("convertTextValue: %v", err)
	}
	if v.(float64) != 3.25 {
		t.Errorf("got %v, want 3.25", v)
	}
}

func TestConvertTextValueDecimal(t *testing.T) {
	col := columnDef{fieldType: fieldTypeNewDecimal}
	v, err := convertTextValue(col, []byte("19.99"), false, time.UTC)
	if err != nil {
		t.Fatalf("convertTextValue: %v", err)
	}
	want := decimal.RequireFromString("19.99")
	if !v.(decimal.Decimal).Equal(want) {
		t.Errorf("got %v, want %v", v, want)
	}
}

func TestConvertTextValueDateTime(t *testing.T) {
	col := columnDef{fieldType: fieldTypeDateTime}
	v, err := convertTextValue(col, []byte("2024-03-05 13:45:09"), true, time.UTC)
	if err != nil {
		t.Fatalf("convertTextValue: %v", err)
	}
	got, ok := v.(time.Time)
	if !ok {
		t.Fatalf("got %T, want time.Time", v)
	}
	want := time.Date(2024, time.March, 5, 13, 45, 9, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestConvertTextValueDateTimeRaw(t *testing.T) {
	col := columnDef{fieldType: fieldTypeDateTime}
	v, err := convertTextValue(col, []byte("2024-03-05 13:45:09"), false, time.UTC)
	if err != nil {
		t.Fatalf("convertTextValue: %v", err)
	}
	if _, ok := v.([]byte); !ok {
		t.Errorf("got %T, want []byte when parseTime is false", v)
	}
}

func TestConvertTextValueTime(t *testing.T) {
	col := columnDef{fieldType: fieldTypeTime}
	v, err := convertTextValue(col, []byte("02:30:15"), true, time.UTC)
	if err != nil {
		t.Fatalf("convertTextValue: %v", err)
	}
	want := 2*time.Hour + 30*time.Minute + 15*time.Second
	if v.(time.Duration) != want {
		t.Errorf("got %v, want %v", v, want)
	}
}

func TestColumnDefFlags(t *testing.T) {
	c := columnDef{flags: flagNotNULL | flagUnsigned | flagAutoIncrement | flagPriKey}
	if c.nullable() {
		t.Error("expected not nullable")
	}
	if !c.unsigned() || !c.autoIncrement() || !c.primaryKey() {
		t.Error("expected unsigned/autoIncrement/primaryKey flags set")
	}
}
