package words

import "slices"

// DigitGroup names a column of the number word table.
type DigitGroup int

const (
	Ones DigitGroup = iota
	Teens
	Tens
	Hundreds
	Thousands
)

type vocabulary struct {
	groups   map[DigitGroup][]string
	zero     string
	negative string

	// and separates hundreds from the rest of a group and groups from
	// each other.
	and string

	// tensAnd joins tens and ones. tensOne replaces it when the ones
	// digit is 1, as in "vingt et un".
	tensAnd string
	tensOne string

	// onesFirst speaks the ones before the tens, as in "einundzwanzig".
	onesFirst bool

	// one is the word for 1 in front of tens or a magnitude word when it
	// differs from Ones[1] ("ein", not "eins").
	one string

	// Magnitudes up to bare are spoken without a leading one ("mille").
	bare int

	// plural holds magnitude words for counts above one.
	plural []string
}

// Index i of each group holds the word for i (Ones, Hundreds, Tens),
// 10+i (Teens) or 1000^i (Thousands). Empty strings are never spoken.
// Orthography is simplified to what fits the three digit group scheme:
// compounds are not elided and magnitude words take a single plural.
var table = map[Language]vocabulary{
	English: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"},
			Teens:     {"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"},
			Tens:      {"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"},
			Hundreds:  {"", "One Hundred", "Two Hundred", "Three Hundred", "Four Hundred", "Five Hundred", "Six Hundred", "Seven Hundred", "Eight Hundred", "Nine Hundred"},
			Thousands: {"", "Thousand", "Million", "Billion", "Trillion", "Quadrillion", "Quintillion"},
		},
		zero:     "Zero",
		negative: "Negative",
		and:      " ",
		tensAnd:  " ",
	},
	Persian: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "یک", "دو", "سه", "چهار", "پنج", "شش", "هفت", "هشت", "نه"},
			Teens:     {"ده", "یازده", "دوازده", "سیزده", "چهارده", "پانزده", "شانزده", "هفده", "هجده", "نوزده"},
			Tens:      {"", "", "بیست", "سی", "چهل", "پنجاه", "شصت", "هفتاد", "هشتاد", "نود"},
			Hundreds:  {"", "صد", "دویست", "سیصد", "چهارصد", "پانصد", "ششصد", "هفتصد", "هشتصد", "نهصد"},
			Thousands: {"", "هزار", "میلیون", "میلیارد", "تریلیون", "کوادریلیون", "کوینتیلیون"},
		},
		zero:     "صفر",
		negative: "منفی",
		and:      " و ",
		tensAnd:  " و ",
	},
	Arabic: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "واحد", "اثنان", "ثلاثة", "أربعة", "خمسة", "ستة", "سبعة", "ثمانية", "تسعة"},
			Teens:     {"عشرة", "أحد عشر", "اثنا عشر", "ثلاثة عشر", "أربعة عشر", "خمسة عشر", "ستة عشر", "سبعة عشر", "ثمانية عشر", "تسعة عشر"},
			Tens:      {"", "", "عشرون", "ثلاثون", "أربعون", "خمسون", "ستون", "سبعون", "ثمانون", "تسعون"},
			Hundreds:  {"", "مائة", "مائتان", "ثلاثمائة", "أربعمائة", "خمسمائة", "ستمائة", "سبعمائة", "ثمانمائة", "تسعمائة"},
			Thousands: {"", "ألف", "مليون", "مليار", "تريليون", "كوادريليون", "كوينتليون"},
		},
		zero:      "صفر",
		negative:  "سالب",
		and:       " و ",
		tensAnd:   " و ",
		onesFirst: true,
		bare:      6,
		plural:    []string{"", "آلاف", "ملايين", "مليارات", "تريليونات", "كوادريليونات", "كوينتليونات"},
	},
	German: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "eins", "zwei", "drei", "vier", "fünf", "sechs", "sieben", "acht", "neun"},
			Teens:     {"zehn", "elf", "zwölf", "dreizehn", "vierzehn", "fünfzehn", "sechzehn", "siebzehn", "achtzehn", "neunzehn"},
			Tens:      {"", "", "zwanzig", "dreißig", "vierzig", "fünfzig", "sechzig", "siebzig", "achtzig", "neunzig"},
			Hundreds:  {"", "einhundert", "zweihundert", "dreihundert", "vierhundert", "fünfhundert", "sechshundert", "siebenhundert", "achthundert", "neunhundert"},
			Thousands: {"", "tausend", "Million", "Milliarde", "Billion", "Billiarde", "Trillion"},
		},
		zero:      "null",
		negative:  "minus",
		and:       " ",
		tensAnd:   "und",
		onesFirst: true,
		one:       "ein",
		bare:      1,
		plural:    []string{"", "tausend", "Millionen", "Milliarden", "Billionen", "Billiarden", "Trillionen"},
	},
	French: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "un", "deux", "trois", "quatre", "cinq", "six", "sept", "huit", "neuf"},
			Teens:     {"dix", "onze", "douze", "treize", "quatorze", "quinze", "seize", "dix-sept", "dix-huit", "dix-neuf"},
			Tens:      {"", "", "vingt", "trente", "quarante", "cinquante", "soixante", "septante", "huitante", "nonante"},
			Hundreds:  {"", "cent", "deux cent", "trois cent", "quatre cent", "cinq cent", "six cent", "sept cent", "huit cent", "neuf cent"},
			Thousands: {"", "mille", "million", "milliard", "billion", "billiard", "trillion"},
		},
		zero:     "zéro",
		negative: "moins",
		and:      " ",
		tensAnd:  "-",
		tensOne:  " et ",
		bare:     1,
		plural:   []string{"", "mille", "millions", "milliards", "billions", "billiards", "trillions"},
	},
	Spanish: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve"},
			Teens:     {"diez", "once", "doce", "trece", "catorce", "quince", "dieciséis", "diecisiete", "dieciocho", "diecinueve"},
			Tens:      {"", "", "veinte", "treinta", "cuarenta", "cincuenta", "sesenta", "setenta", "ochenta", "noventa"},
			Hundreds:  {"", "cien", "doscientos", "trescientos", "cuatrocientos", "quinientos", "seiscientos", "setecientos", "ochocientos", "novecientos"},
			Thousands: {"", "mil", "millón", "millardo", "billón", "billardo", "trillón"},
		},
		zero:     "cero",
		negative: "menos",
		and:      " ",
		tensAnd:  " y ",
		one:      "un",
		bare:     1,
		plural:   []string{"", "mil", "millones", "millardos", "billones", "billardos", "trillones"},
	},
	Italian: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "uno", "due", "tre", "quattro", "cinque", "sei", "sette", "otto", "nove"},
			Teens:     {"dieci", "undici", "dodici", "tredici", "quattordici", "quindici", "sedici", "diciassette", "diciotto", "diciannove"},
			Tens:      {"", "", "venti", "trenta", "quaranta", "cinquanta", "sessanta", "settanta", "ottanta", "novanta"},
			Hundreds:  {"", "cento", "duecento", "trecento", "quattrocento", "cinquecento", "seicento", "settecento", "ottocento", "novecento"},
			Thousands: {"", "mille", "milione", "miliardo", "bilione", "biliardo", "trilione"},
		},
		zero:     "zero",
		negative: "meno",
		and:      " ",
		tensAnd:  "",
		one:      "un",
		bare:     1,
		plural:   []string{"", "mila", "milioni", "miliardi", "bilioni", "biliardi", "trilioni"},
	},
	Portuguese: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "um", "dois", "três", "quatro", "cinco", "seis", "sete", "oito", "nove"},
			Teens:     {"dez", "onze", "doze", "treze", "catorze", "quinze", "dezesseis", "dezessete", "dezoito", "dezenove"},
			Tens:      {"", "", "vinte", "trinta", "quarenta", "cinquenta", "sessenta", "setenta", "oitenta", "noventa"},
			Hundreds:  {"", "cem", "duzentos", "trezentos", "quatrocentos", "quinhentos", "seiscentos", "setecentos", "oitocentos", "novecentos"},
			Thousands: {"", "mil", "milhão", "bilhão", "trilhão", "quatrilhão", "quintilhão"},
		},
		zero:     "zero",
		negative: "menos",
		and:      " e ",
		tensAnd:  " e ",
		bare:     1,
		plural:   []string{"", "mil", "milhões", "bilhões", "trilhões", "quatrilhões", "quintilhões"},
	},
	Finnish: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "yksi", "kaksi", "kolme", "neljä", "viisi", "kuusi", "seitsemän", "kahdeksan", "yhdeksän"},
			Teens:     {"kymmenen", "yksitoista", "kaksitoista", "kolmetoista", "neljätoista", "viisitoista", "kuusitoista", "seitsemäntoista", "kahdeksantoista", "yhdeksäntoista"},
			Tens:      {"", "", "kaksikymmentä", "kolmekymmentä", "neljäkymmentä", "viisikymmentä", "kuusikymmentä", "seitsemänkymmentä", "kahdeksankymmentä", "yhdeksänkymmentä"},
			Hundreds:  {"", "sata", "kaksisataa", "kolmesataa", "neljäsataa", "viisisataa", "kuusisataa", "seitsemänsataa", "kahdeksansataa", "yhdeksänsataa"},
			Thousands: {"", "tuhat", "miljoona", "miljardi", "biljoona", "biljardi", "triljoona"},
		},
		zero:     "nolla",
		negative: "miinus",
		and:      " ",
		tensAnd:  "",
		bare:     1,
		plural:   []string{"", "tuhatta", "miljoonaa", "miljardia", "biljoonaa", "biljardia", "triljoonaa"},
	},
	Turkish: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "bir", "iki", "üç", "dört", "beş", "altı", "yedi", "sekiz", "dokuz"},
			Teens:     {"on", "on bir", "on iki", "on üç", "on dört", "on beş", "on altı", "on yedi", "on sekiz", "on dokuz"},
			Tens:      {"", "", "yirmi", "otuz", "kırk", "elli", "altmış", "yetmiş", "seksen", "doksan"},
			Hundreds:  {"", "yüz", "iki yüz", "üç yüz", "dört yüz", "beş yüz", "altı yüz", "yedi yüz", "sekiz yüz", "dokuz yüz"},
			Thousands: {"", "bin", "milyon", "milyar", "trilyon", "katrilyon", "kentilyon"},
		},
		zero:     "sıfır",
		negative: "eksi",
		and:      " ",
		tensAnd:  " ",
		bare:     1,
	},
	Indonesian: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "satu", "dua", "tiga", "empat", "lima", "enam", "tujuh", "delapan", "sembilan"},
			Teens:     {"sepuluh", "sebelas", "dua belas", "tiga belas", "empat belas", "lima belas", "enam belas", "tujuh belas", "delapan belas", "sembilan belas"},
			Tens:      {"", "", "dua puluh", "tiga puluh", "empat puluh", "lima puluh", "enam puluh", "tujuh puluh", "delapan puluh", "sembilan puluh"},
			Hundreds:  {"", "seratus", "dua ratus", "tiga ratus", "empat ratus", "lima ratus", "enam ratus", "tujuh ratus", "delapan ratus", "sembilan ratus"},
			Thousands: {"", "seribu", "juta", "miliar", "triliun", "kuadriliun", "kuintiliun"},
		},
		zero:     "nol",
		negative: "minus",
		and:      " ",
		tensAnd:  " ",
		bare:     1,
		plural:   []string{"", "ribu", "juta", "miliar", "triliun", "kuadriliun", "kuintiliun"},
	},
	Swedish: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "ett", "två", "tre", "fyra", "fem", "sex", "sju", "åtta", "nio"},
			Teens:     {"tio", "elva", "tolv", "tretton", "fjorton", "femton", "sexton", "sjutton", "arton", "nitton"},
			Tens:      {"", "", "tjugo", "trettio", "fyrtio", "femtio", "sextio", "sjuttio", "åttio", "nittio"},
			Hundreds:  {"", "etthundra", "tvåhundra", "trehundra", "fyrahundra", "femhundra", "sexhundra", "sjuhundra", "åttahundra", "niohundra"},
			Thousands: {"", "tusen", "miljon", "miljard", "biljon", "biljard", "triljon"},
		},
		zero:     "noll",
		negative: "minus",
		and:      " ",
		tensAnd:  "",
		plural:   []string{"", "tusen", "miljoner", "miljarder", "biljoner", "biljarder", "triljoner"},
	},
	Danish: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "en", "to", "tre", "fire", "fem", "seks", "syv", "otte", "ni"},
			Teens:     {"ti", "elleve", "tolv", "tretten", "fjorten", "femten", "seksten", "sytten", "atten", "nitten"},
			Tens:      {"", "", "tyve", "tredive", "fyrre", "halvtreds", "tres", "halvfjerds", "firs", "halvfems"},
			Hundreds:  {"", "et hundrede", "to hundrede", "tre hundrede", "fire hundrede", "fem hundrede", "seks hundrede", "syv hundrede", "otte hundrede", "ni hundrede"},
			Thousands: {"", "tusind", "million", "milliard", "billion", "billiard", "trillion"},
		},
		zero:      "nul",
		negative:  "minus",
		and:       " ",
		tensAnd:   "og",
		onesFirst: true,
		bare:      1,
		plural:    []string{"", "tusind", "millioner", "milliarder", "billioner", "billiarder", "trillioner"},
	},
	Norwegian: {
		groups: map[DigitGroup][]string{
			Ones:      {"", "en", "to", "tre", "fire", "fem", "seks", "sju", "åtte", "ni"},
			Teens:     {"ti", "elleve", "tolv", "tretten", "fjorten", "femten", "seksten", "sytten", "atten", "nitten"},
			Tens:      {"", "", "tjue", "tretti", "førti", "femti", "seksti", "sytti", "åtti", "nitti"},
			Hundreds:  {"", "ett hundre", "to hundre", "tre hundre", "fire hundre", "fem hundre", "seks hundre", "sju hundre", "åtte hundre", "ni hundre"},
			Thousands: {"", "tusen", "million", "milliard", "billion", "billiard", "trillion"},
		},
		zero:     "null",
		negative: "minus",
		and:      " ",
		tensAnd:  "",
		bare:     1,
		plural:   []string{"", "tusen", "millioner", "milliarder", "billioner", "billiarder", "trillioner"},
	},
}

// Words returns a copy of the word list for a language and digit group.
func Words(l Language, g DigitGroup) []string {
	v, ok := table[l]
	if !ok {
		return nil
	}

	return slices.Clone(v.groups[g])
}
