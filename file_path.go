package srcbatch

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

//FilePath an abstract file path such as "{basedir}/srcmaps/srcmaps_{sourcekey}_{job,#02}.fits"
type FilePath struct {
	NamePattern string
}

var paramRegexp = regexp.MustCompile("\\{[^\\}]+\\}")

func splitParam(s string) (param, format string) {
	param = s[1 : len(s)-1]
	if idx := strings.Index(param, ","); idx > 0 {
		param, format = param[0:idx], param[idx+1:]
	}
	return param, format
}

//Params names of the parameters referenced by the pattern, in order of appearance
func (f *FilePath) Params() []string {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, s := range paramRegexp.FindAllString(f.NamePattern, -1) {
		param, _ := splitParam(s)
		if !seen[param] {
			seen[param] = true
			names = append(names, param)
		}
	}
	return names
}

//Format generate a real file path by substituting params into the pattern
func (f *FilePath) Format(params map[string]interface{}) (string, error) {
	var missing []string
	var err error
	factPath := paramRegexp.ReplaceAllStringFunc(f.NamePattern, func(s string) string {
		param, format := splitParam(s)
		paramVal, ok := params[param]
		if !ok || paramVal == nil || paramVal == "" {
			missing = append(missing, param)
			return ""
		}
		str, e := formatParam(paramVal, format)
		if e != nil && err == nil {
			err = errors.Wrapf(e, "format param:%v", param)
		}
		return str
	})
	if len(missing) > 0 {
		return "", errors.Errorf("can not find params:%v for path:%v", strings.Join(missing, ","), f.NamePattern)
	}
	if err != nil {
		return "", err
	}
	return factPath, nil
}

var dateFmtRegexp = regexp.MustCompile("yyyy|MM|dd|HH|mm|SS")

func formatParam(val interface{}, format string) (string, error) {
	if format == "" {
		return fmt.Sprintf("%v", val), nil
	} else if dateFmtRegexp.MatchString(format) {
		format = strings.ReplaceAll(format, "yyyy", "2006")
		format = strings.ReplaceAll(format, "MM", "01")
		format = strings.ReplaceAll(format, "dd", "02")
		format = strings.ReplaceAll(format, "HH", "15")
		format = strings.ReplaceAll(format, "mm", "04")
		format = strings.ReplaceAll(format, "SS", "05")
		dt, err := parseDate(val)
		if err != nil {
			return "", err
		}
		return dt.Format(format), nil
	} else if idx := strings.Index(format, "#"); idx >= 0 {
		width := format[idx+1:]
		if idx > 0 {
			width = format[0:idx]
		}
		digit, err := strconv.Atoi(width)
		if err != nil {
			return "", errors.Errorf("unsupported format:%v", format)
		}
		n, err := parseInteger(val)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(width, "0") {
			return fmt.Sprintf("%0*d", digit, n), nil
		}
		return fmt.Sprintf("%*d", digit, n), nil
	}
	return "", errors.Errorf("unsupported format:%v", format)
}

func parseDate(val interface{}) (time.Time, error) {
	refVal := reflect.ValueOf(val)
	if refVal.Kind() == reflect.Struct && refVal.Type().String() == "time.Time" {
		return val.(time.Time), nil
	}
	if strVal, ok := val.(string); ok {
		switch len(strVal) {
		case 8:
			return time.ParseInLocation("20060102", strVal, time.Local)
		case 10:
			return time.ParseInLocation("2006-01-02", strVal, time.Local)
		case 19:
			return time.ParseInLocation("2006-01-02 15:04:05", strVal, time.Local)
		}
	}
	return time.Time{}, errors.Errorf("can not parse to date:%v", val)
}

func parseInteger(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case string:
		n, err := strconv.Atoi(v)
		return int64(n), err
	}
	return -1, errors.Errorf("can not parse to integer:%v", val)
}
