package main

type Config struct {
	Host           string `env:"HOST,default=0.0.0.0"`
	Port           int    `env:"PORT,default=8080"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=data/hub"`
	FilesRoot      string `env:"FILES_ROOT,default=data/files"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
}
