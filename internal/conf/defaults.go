// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Daybook")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "daybook.log")

	viper.SetDefault("capture.segmentlength", 30)
	viper.SetDefault("capture.clippath", "clips/")

	viper.SetDefault("journal.transcription.pollinterval", 15)
	viper.SetDefault("journal.transcription.batchsize", 8)
	viper.SetDefault("journal.transcription.maxattempts", 3)
	viper.SetDefault("journal.transcription.command", "")

	viper.SetDefault("location.enabled", true)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "daybook.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "daybook")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "daybook")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.statscachettl", 30)

	viper.SetDefault("history.retentiondays", 0)
}
