// Package config는 viper 기반의 설정 조회 계층입니다.
// 환경 변수 오버라이드를 설정 파일과 같은 키 체계(a.b.c → PREFIX_A_B_C)로 조회합니다.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 인터페이스는 설정 값에 액세스하기 위한 메서드를 정의합니다.
type Config interface {
	IsSet(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat64(key string) float64
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
	GetAll() map[string]interface{}
}

// viperConfig는 viper를 사용하여 Config 인터페이스를 구현합니다.
type viperConfig struct {
	v *viper.Viper
}

func (c *viperConfig) IsSet(key string) bool                { return c.v.IsSet(key) }
func (c *viperConfig) GetString(key string) string          { return c.v.GetString(key) }
func (c *viperConfig) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *viperConfig) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *viperConfig) GetFloat64(key string) float64        { return c.v.GetFloat64(key) }
func (c *viperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *viperConfig) GetStringSlice(key string) []string   { return c.v.GetStringSlice(key) }
func (c *viperConfig) GetAll() map[string]interface{}       { return c.v.AllSettings() }

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(prefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// FromEnv는 설정 파일 없이 환경 변수만 조회하는 Config를 반환합니다.
// 예: prefix가 "billing"이면 provider.api_key는 BILLING_PROVIDER_API_KEY에서 읽습니다.
func FromEnv(prefix string) Config {
	return &viperConfig{v: newViper(prefix)}
}
