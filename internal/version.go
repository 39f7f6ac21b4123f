package internal

// Version is the cardtrans release
const Version = "0.3.0"
