package main

type Config struct {
	ServerURL string `env:"SERVER_URL,default=ws://localhost:8080"`
	RoomCode  string `env:"ROOM_CODE,required=true"`
	UserID    string `env:"USER_ID,required=true"`
	LogLevel  string `env:"LOG_LEVEL,default=WARN"`
}
