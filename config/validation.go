package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validate      *validator.Validate
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterStructValidation(validateConnection, ConnectionConfig{})
		validate = v
	})
	return validate
}

// validateConnection enforces the fields each driver needs to build a DSN.
func validateConnection(sl validator.StructLevel) {
	cc, ok := sl.Current().Interface().(ConnectionConfig)
	if !ok || cc.ConnectionString != "" {
		return
	}
	switch cc.Driver {
	case SQLite:
		if cc.Database == "" {
			sl.ReportError(cc.Database, "database", "Database", "required_for_driver", cc.Driver)
		}
	case MySQL, PostgreSQL, Oracle:
		if cc.Host == "" {
			sl.ReportError(cc.Host, "host", "Host", "required_for_driver", cc.Driver)
		}
		if cc.Driver == Oracle && cc.ServiceName == "" && cc.Database == "" {
			sl.ReportError(cc.ServiceName, "servicename", "ServiceName", "required_for_driver", cc.Driver)
		}
	}
}

// Validate checks cfg against its struct tags and the per-driver rules.
// The first failure is returned as a *ConfigError; further failures are listed in Details.
func Validate(cfg *Config) error {
	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	first := toConfigError(verrs[0])
	for _, fe := range verrs[1:] {
		first.Details = append(first.Details, toConfigError(fe).Error())
	}
	return first
}

func toConfigError(fe validator.FieldError) *ConfigError {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field)
	case "required_for_driver":
		ce := NewMissingFieldError(field)
		ce.Message = fmt.Sprintf("required for driver %s", fe.Param())
		return ce
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param()))
	case "min", "max":
		return NewInvalidFieldError(field, fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param()), nil)
	default:
		return NewInvalidFieldError(field, fmt.Sprintf("failed %s validation", fe.Tag()), nil)
	}
}

// fieldPath turns "Config.database.connections[main].host" into
// "database.connections.main.host".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	namespace = strings.ReplaceAll(namespace, "[", ".")
	return strings.ReplaceAll(namespace, "]", "")
}
