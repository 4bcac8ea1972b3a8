package registry

var (
	flame = []Path{
		{D: "M12 2c1 3.5 5 6 5 11a5 5 0 0 1-10 0c0-2.4 1.2-4.2 2.6-5.6C10 9.5 11 11 12 11c0-3 0-6 0-9z"},
	}
	droplet = []Path{
		{D: "M12 2.5C9 7 6 10.3 6 14a6 6 0 0 0 12 0c0-3.7-3-7-6-11.5z"},
	}
	mountain = []Path{
		{D: "M2 20 9 8l4 6 2-3 7 9z"},
		{D: "M9 8l1.6 2.7L9 12l-1.4-1.6z", FillRule: "evenodd"},
	}
	crack = []Path{
		{D: "M3 4h18v16H3z", FillRule: "evenodd"},
		{D: "M11 4l-2 5 4 3-3 4 2 4"},
	}
	car = []Path{
		{D: "M5 11l1.5-4.5A2 2 0 0 1 8.4 5h7.2a2 2 0 0 1 1.9 1.5L19 11v6h-2v2h-2v-2H9v2H7v-2H5z"},
		{D: "M7.5 14.5a1 1 0 1 0 0-.01zM16.5 14.5a1 1 0 1 0 0-.01z"},
	}
	cross = []Path{
		{D: "M9 3h6v6h6v6h-6v6H9v-6H3V9h6z"},
	}
	bolt = []Path{
		{D: "M13 2 4 14h6l-1 8 9-12h-6z"},
	}
	shield = []Path{
		{D: "M12 2 4 5v6c0 5 3.4 9.5 8 11 4.6-1.5 8-6 8-11V5z"},
	}
	house = []Path{
		{D: "M3 11 12 3l9 8h-3v9h-5v-6h-2v6H6v-9z"},
	}
	pin = []Path{
		{D: "M12 2a7 7 0 0 0-7 7c0 5.2 7 13 7 13s7-7.8 7-13a7 7 0 0 0-7-7z"},
		{D: "M12 6.5a2.5 2.5 0 1 0 0 5 2.5 2.5 0 0 0 0-5z", FillRule: "evenodd"},
	}
)
