package handler

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-admission-api/internal/dto"
)

// fieldErrorsFrom converts validator failures into the legacy detail shape,
// e.g. Parents[0].Email -> loc ["body","parents",0,"email"]. Field names are
// resolved to their json tags by walking the request type.
func fieldErrorsFrom(err error, reqType reflect.Type) ([]dto.FieldError, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	fields := make([]dto.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		loc := []interface{}{"body"}
		current := reqType
		// Namespace starts with the struct type name itself.
		segments := strings.Split(fe.Namespace(), ".")[1:]
		for _, segment := range segments {
			name := segment
			index := -1
			if open := strings.IndexByte(segment, '['); open >= 0 {
				name = segment[:open]
				if i, convErr := strconv.Atoi(strings.TrimSuffix(segment[open+1:], "]")); convErr == nil {
					index = i
				}
			}
			jsonName, next := jsonFieldName(current, name)
			loc = append(loc, jsonName)
			current = next
			if index >= 0 {
				loc = append(loc, index)
				if current != nil && (current.Kind() == reflect.Slice || current.Kind() == reflect.Array) {
					current = current.Elem()
				}
			}
		}
		fields = append(fields, dto.FieldError{Loc: loc, Msg: messageFor(fe)})
	}
	return fields, true
}

func jsonFieldName(t reflect.Type, goName string) (string, reflect.Type) {
	if t == nil {
		return strings.ToLower(goName), nil
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return strings.ToLower(goName), nil
	}
	field, ok := t.FieldByName(goName)
	if !ok {
		return strings.ToLower(goName), nil
	}
	tag := strings.Split(field.Tag.Get("json"), ",")[0]
	if tag == "" || tag == "-" {
		tag = strings.ToLower(goName)
	}
	return tag, field.Type
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return "ensure this value has at least " + fe.Param() + " items"
	case "oneof":
		return "value is not a permitted choice"
	default:
		return "invalid value"
	}
}
