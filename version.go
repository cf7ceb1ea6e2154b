package refx

// Version of the refx library
const Version = "1.0.0"
