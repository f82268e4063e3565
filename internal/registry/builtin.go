package registry

// BuiltIn is the country table of the SWIFT IBAN registry
var BuiltIn = []Spec{
	{Code: "AD", Length: 24, Structure: "4!n4!n12!c", SEPA: true},           // Andorra
	{Code: "AE", Length: 23, Structure: "3!n16!n", SEPA: false},             // United Arab Emirates
	{Code: "AL", Length: 28, Structure: "8!n16!c", SEPA: false},             // Albania
	{Code: "AT", Length: 20, Structure: "5!n11!n", SEPA: true},              // Austria
	{Code: "AZ", Length: 28, Structure: "4!a20!c", SEPA: false},             // Azerbaijan
	{Code: "BA", Length: 20, Structure: "3!n3!n8!n2!n", SEPA: false},        // Bosnia and Herzegovina
	{Code: "BE", Length: 16, Structure: "3!n7!n2!n", SEPA: true},            // Belgium
	{Code: "BG", Length: 22, Structure: "4!a4!n2!n8!c", SEPA: true},         // Bulgaria
	{Code: "BH", Length: 22, Structure: "4!a14!c", SEPA: false},             // Bahrain
	{Code: "BI", Length: 27, Structure: "5!n5!n11!n2!n", SEPA: false},       // Burundi
	{Code: "BR", Length: 29, Structure: "8!n5!n10!n1!a1!c", SEPA: false},    // Brazil
	{Code: "BY", Length: 28, Structure: "4!c4!n16!c", SEPA: false},          // Belarus
	{Code: "CH", Length: 21, Structure: "5!n12!c", SEPA: true},              // Switzerland
	{Code: "CR", Length: 22, Structure: "4!n14!n", SEPA: false},             // Costa Rica
	{Code: "CY", Length: 28, Structure: "3!n5!n16!c", SEPA: true},           // Cyprus
	{Code: "CZ", Length: 24, Structure: "4!n6!n10!n", SEPA: true},           // Czechia
	{Code: "DE", Length: 22, Structure: "8!n10!n", SEPA: true},              // Germany
	{Code: "DJ", Length: 27, Structure: "5!n5!n11!n2!n", SEPA: false},       // Djibouti
	{Code: "DK", Length: 18, Structure: "4!n9!n1!n", SEPA: true},            // Denmark
	{Code: "DO", Length: 28, Structure: "4!c20!n", SEPA: false},             // Dominican Republic
	{Code: "EE", Length: 20, Structure: "2!n2!n11!n1!n", SEPA: true},        // Estonia
	{Code: "EG", Length: 29, Structure: "4!n4!n17!n", SEPA: false},          // Egypt
	{Code: "ES", Length: 24, Structure: "4!n4!n1!n1!n10!n", SEPA: true},     // Spain
	{Code: "FI", Length: 18, Structure: "3!n11!n", SEPA: true},              // Finland
	{Code: "FK", Length: 18, Structure: "2!a12!n", SEPA: false},             // Falkland Islands
	{Code: "FO", Length: 18, Structure: "4!n9!n1!n", SEPA: false},           // Faroe Islands
	{Code: "FR", Length: 27, Structure: "5!n5!n11!c2!n", SEPA: true},        // France
	{Code: "GB", Length: 22, Structure: "4!a6!n8!n", SEPA: true},            // United Kingdom
	{Code: "GE", Length: 22, Structure: "2!a16!n", SEPA: false},             // Georgia
	{Code: "GI", Length: 23, Structure: "4!a15!c", SEPA: true},              // Gibraltar
	{Code: "GL", Length: 18, Structure: "4!n9!n1!n", SEPA: false},           // Greenland
	{Code: "GR", Length: 27, Structure: "3!n4!n16!c", SEPA: true},           // Greece
	{Code: "GT", Length: 28, Structure: "4!c20!c", SEPA: false},             // Guatemala
	{Code: "HR", Length: 21, Structure: "7!n10!n", SEPA: true},              // Croatia
	{Code: "HU", Length: 28, Structure: "3!n4!n1!n15!n1!n", SEPA: true},     // Hungary
	{Code: "IE", Length: 22, Structure: "4!a6!n8!n", SEPA: true},            // Ireland
	{Code: "IL", Length: 23, Structure: "3!n3!n13!n", SEPA: false},          // Israel
	{Code: "IQ", Length: 23, Structure: "4!a3!n12!n", SEPA: false},          // Iraq
	{Code: "IS", Length: 26, Structure: "4!n2!n6!n10!n", SEPA: true},        // Iceland
	{Code: "IT", Length: 27, Structure: "1!a5!n5!n12!c", SEPA: true},        // Italy
	{Code: "JO", Length: 30, Structure: "4!a4!n18!c", SEPA: false},          // Jordan
	{Code: "KW", Length: 30, Structure: "4!a22!c", SEPA: false},             // Kuwait
	{Code: "KZ", Length: 20, Structure: "3!n13!c", SEPA: false},             // Kazakhstan
	{Code: "LB", Length: 28, Structure: "4!n20!c", SEPA: false},             // Lebanon
	{Code: "LC", Length: 32, Structure: "4!a24!c", SEPA: false},             // Saint Lucia
	{Code: "LI", Length: 21, Structure: "5!n12!c", SEPA: true},              // Liechtenstein
	{Code: "LT", Length: 20, Structure: "5!n11!n", SEPA: true},              // Lithuania
	{Code: "LU", Length: 20, Structure: "3!n13!c", SEPA: true},              // Luxembourg
	{Code: "LV", Length: 21, Structure: "4!a13!c", SEPA: true},              // Latvia
	{Code: "LY", Length: 25, Structure: "3!n3!n15!n", SEPA: false},          // Libya
	{Code: "MC", Length: 27, Structure: "5!n5!n11!c2!n", SEPA: true},        // Monaco
	{Code: "MD", Length: 24, Structure: "2!c18!c", SEPA: false},             // Moldova
	{Code: "ME", Length: 22, Structure: "3!n13!n2!n", SEPA: false},          // Montenegro
	{Code: "MK", Length: 19, Structure: "3!n10!c2!n", SEPA: false},          // North Macedonia
	{Code: "MN", Length: 20, Structure: "4!n12!n", SEPA: false},             // Mongolia
	{Code: "MR", Length: 27, Structure: "5!n5!n11!n2!n", SEPA: false},       // Mauritania
	{Code: "MT", Length: 31, Structure: "4!a5!n18!c", SEPA: true},           // Malta
	{Code: "MU", Length: 30, Structure: "4!a2!n2!n12!n3!n3!a", SEPA: false}, // Mauritius
	{Code: "NI", Length: 28, Structure: "4!a20!n", SEPA: false},             // Nicaragua
	{Code: "NL", Length: 18, Structure: "4!a10!n", SEPA: true},              // Netherlands
	{Code: "NO", Length: 15, Structure: "4!n6!n1!n", SEPA: true},            // Norway
	{Code: "OM", Length: 23, Structure: "3!n16!c", SEPA: false},             // Oman
	{Code: "PK", Length: 24, Structure: "4!a16!c", SEPA: false},             // Pakistan
	{Code: "PL", Length: 28, Structure: "8!n16!n", SEPA: true},              // Poland
	{Code: "PS", Length: 29, Structure: "4!a21!c", SEPA: false},             // Palestine
	{Code: "PT", Length: 25, Structure: "4!n4!n11!n2!n", SEPA: true},        // Portugal
	{Code: "QA", Length: 29, Structure: "4!a21!c", SEPA: false},             // Qatar
	{Code: "RO", Length: 24, Structure: "4!a16!c", SEPA: true},              // Romania
	{Code: "RS", Length: 22, Structure: "3!n13!n2!n", SEPA: false},          // Serbia
	{Code: "RU", Length: 33, Structure: "9!n5!n15!c", SEPA: false},          // Russia
	{Code: "SA", Length: 24, Structure: "2!n18!c", SEPA: false},             // Saudi Arabia
	{Code: "SC", Length: 31, Structure: "4!a2!n2!n16!n3!a", SEPA: false},    // Seychelles
	{Code: "SD", Length: 18, Structure: "2!n12!n", SEPA: false},             // Sudan
	{Code: "SE", Length: 24, Structure: "3!n16!n1!n", SEPA: true},           // Sweden
	{Code: "SI", Length: 19, Structure: "5!n8!n2!n", SEPA: true},            // Slovenia
	{Code: "SK", Length: 24, Structure: "4!n6!n10!n", SEPA: true},           // Slovakia
	{Code: "SM", Length: 27, Structure: "1!a5!n5!n12!c", SEPA: true},        // San Marino
	{Code: "SO", Length: 23, Structure: "4!n3!n12!n", SEPA: false},          // Somalia
	{Code: "ST", Length: 25, Structure: "4!n4!n11!n2!n", SEPA: false},       // Sao Tome and Principe
	{Code: "SV", Length: 28, Structure: "4!a20!n", SEPA: false},             // El Salvador
	{Code: "TL", Length: 23, Structure: "3!n14!n2!n", SEPA: false},          // Timor-Leste
	{Code: "TN", Length: 24, Structure: "2!n3!n13!n2!n", SEPA: false},       // Tunisia
	{Code: "TR", Length: 26, Structure: "5!n1!n16!c", SEPA: false},          // Turkey
	{Code: "UA", Length: 29, Structure: "6!n19!c", SEPA: false},             // Ukraine
	{Code: "VA", Length: 22, Structure: "3!n15!n", SEPA: true},              // Vatican City
	{Code: "VG", Length: 24, Structure: "4!a16!n", SEPA: false},             // British Virgin Islands
	{Code: "XK", Length: 20, Structure: "4!n10!n2!n", SEPA: false},          // Kosovo
	{Code: "YE", Length: 30, Structure: "4!a4!n18!c", SEPA: false},          // Yemen
}
